package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveAuth(t *testing.T) {
	before := testutil.ToFloat64(AuthEventsTotal.WithLabelValues("login", ResultFailure))
	ObserveAuth("login", errors.New("bad password"))
	after := testutil.ToFloat64(AuthEventsTotal.WithLabelValues("login", ResultFailure))
	assert.Equal(t, before+1, after)

	before = testutil.ToFloat64(AuthEventsTotal.WithLabelValues("login", ResultSuccess))
	ObserveAuth("login", nil)
	assert.Equal(t, before+1, testutil.ToFloat64(AuthEventsTotal.WithLabelValues("login", ResultSuccess)))
}

func TestResult(t *testing.T) {
	assert.Equal(t, ResultSuccess, Result(nil))
	assert.Equal(t, ResultFailure, Result(errors.New("x")))
}
