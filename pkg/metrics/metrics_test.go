package metrics

import (
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestEmitAttemptThreadSafety(t *testing.T) {
	before := testutil.ToFloat64(attemptCount.WithLabelValues("sat"))
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			EmitAttempt("sat", time.Millisecond)
		}()
	}
	wg.Wait()
	assert.Equal(t, before+100, testutil.ToFloat64(attemptCount.WithLabelValues("sat")))
}

func TestEmitPlanHorizon(t *testing.T) {
	EmitPlanHorizon(4)
	assert.Equal(t, float64(4), testutil.ToFloat64(planHorizon))
	EmitPlanHorizon(2)
	assert.Equal(t, float64(2), testutil.ToFloat64(planHorizon))
}

func TestEmitSearch(t *testing.T) {
	EmitSearch("found", 2*time.Second)
	EmitSearch("indeterminate", time.Second)
	assert.Equal(t, 2, testutil.CollectAndCount(searchDurationSummary))
}
