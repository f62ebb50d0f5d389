package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/openclaw/lily/internal/domain"
)

func TestQuotaForKnownClasses(t *testing.T) {
	assert.Equal(t, ActiveQuota, quotaFor(domain.TTLActive))
	assert.Equal(t, StableQuota, quotaFor(domain.TTLStable))
	assert.Equal(t, PermanentQuota, quotaFor(domain.TTLPermanent))
}

func TestQuotaForSessionIsUnbounded(t *testing.T) {
	assert.Equal(t, 0, quotaFor(domain.TTLSession))
}
