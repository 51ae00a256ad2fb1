package metrics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordStakingOperation(t *testing.T) {
	before := testutil.CollectAndCount(stakingOperationDuration)
	RecordStakingOperation(time.Millisecond, "metrics_test", false)
	RecordStakingOperation(time.Millisecond, "metrics_test", true)
	assert.Equal(t, before+2, testutil.CollectAndCount(stakingOperationDuration))
}

func TestCounters(t *testing.T) {
	queueErrors := testutil.ToFloat64(queueSendErrorCounter)
	RecordQueueSendError()
	assert.Equal(t, queueErrors+1, testutil.ToFloat64(queueSendErrorCounter))

	compensation := testutil.ToFloat64(compensationFailureCounter)
	IncCompensationFailures()
	assert.Equal(t, compensation+1, testutil.ToFloat64(compensationFailureCounter))

	IncStakingOperationErrors("stake", "NO_STAKE")
	assert.Equal(t, float64(1), testutil.ToFloat64(stakingOperationErrorCounter.WithLabelValues("stake", "NO_STAKE")))

	RecordContractReserve("0xabc", 12.5)
	assert.Equal(t, 12.5, testutil.ToFloat64(contractReserveGauge.WithLabelValues("0xabc")))

	RecordContractBalance("0xabc", 20)
	assert.Equal(t, float64(20), testutil.ToFloat64(contractBalanceGauge.WithLabelValues("0xabc")))
}

func TestStakedAccountsGauge(t *testing.T) {
	// a fresh process starts at zero, so removals before a reset go negative
	SetStakedAccounts(0)
	AddStakedAccounts(-1)
	assert.Equal(t, float64(-1), testutil.ToFloat64(stakedAccountsGauge))

	SetStakedAccounts(4)
	assert.Equal(t, float64(4), testutil.ToFloat64(stakedAccountsGauge))
	AddStakedAccounts(1)
	assert.Equal(t, float64(5), testutil.ToFloat64(stakedAccountsGauge))
}

func TestRecordPollerDuration(t *testing.T) {
	boom := errors.New("boom")
	f := RecordPollerDuration("metrics_test", func(ctx context.Context) error {
		return boom
	})
	require.ErrorIs(t, f(t.Context()), boom)
	assert.Equal(t, 1, testutil.CollectAndCount(pollerDurationHistogram, "poller_duration_seconds"))
}

func TestStartHttpRequestDurationTimer(t *testing.T) {
	done := StartHttpRequestDurationTimer("GET", "/metrics_test")
	done(200)
	assert.Positive(t, testutil.CollectAndCount(httpRequestDurationHistogram))
}
