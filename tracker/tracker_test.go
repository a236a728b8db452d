package tracker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/viaship/trackshot/carrier"
	"github.com/viaship/trackshot/config"
	"github.com/viaship/trackshot/models"
)

type fakeStrategy struct {
	tag     string
	acquire func(ctx context.Context, req *models.TrackRequest) (*models.TrackResult, error)
}

func (f *fakeStrategy) Tag() string { return f.tag }

func (f *fakeStrategy) Acquire(ctx context.Context, req *models.TrackRequest) (*models.TrackResult, error) {
	return f.acquire(ctx, req)
}

func testTracker(strategies ...carrier.Strategy) *Tracker {
	registry := carrier.NewRegistry(&carrier.Deps{Fetcher: carrier.NewHTTPFetcher()})
	for _, s := range strategies {
		registry.Register(s)
	}
	cfg := config.CarrierConfig{
		RetryAttempts:  3,
		RetryBaseDelay: time.Millisecond,
	}
	return New(registry, nil, cfg)
}

func TestAcquire_Success(t *testing.T) {
	tr := testTracker(&fakeStrategy{
		tag: carrier.TagLEX,
		acquire: func(_ context.Context, _ *models.TrackRequest) (*models.TrackResult, error) {
			return &models.TrackResult{Status: "DELIVERED", RawStatus: "Đã giao hàng", Screenshot: []byte{1}}, nil
		},
	})

	res, err := tr.Acquire(context.Background(), &models.TrackRequest{Carrier: "Lazada Express", Codes: "LX1"})
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if res.Status != "DELIVERED" || len(res.Screenshot) == 0 {
		t.Errorf("result = %+v, want delivered with screenshot", res)
	}
}

func TestAcquire_UnsupportedProvider(t *testing.T) {
	tr := testTracker()
	_, err := tr.Acquire(context.Background(), &models.TrackRequest{Carrier: "DHL", Codes: "X"})

	var te *models.TrackError
	if !errors.As(err, &te) || te.Code != models.ErrCodeUnsupportedProvider {
		t.Fatalf("error = %v, want code %s", err, models.ErrCodeUnsupportedProvider)
	}
}

func TestAcquire_InvalidInput(t *testing.T) {
	tr := testTracker()
	_, err := tr.Acquire(context.Background(), &models.TrackRequest{Carrier: "lex", Codes: " , "})

	var te *models.TrackError
	if !errors.As(err, &te) || te.Code != models.ErrCodeInvalidInput {
		t.Fatalf("error = %v, want code %s", err, models.ErrCodeInvalidInput)
	}
}

func TestAcquire_RetriesThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	tr := testTracker(&fakeStrategy{
		tag: carrier.TagLEX,
		acquire: func(_ context.Context, _ *models.TrackRequest) (*models.TrackResult, error) {
			if calls.Add(1) < 3 {
				return nil, models.NewTrackError(models.ErrCodeNoTrackingData, "not yet", nil)
			}
			return &models.TrackResult{Status: "UNKNOWN", RawStatus: "processing", Screenshot: []byte{1}}, nil
		},
	})

	_, err := tr.Acquire(context.Background(), &models.TrackRequest{Carrier: "lex", Codes: "LX1"})
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("strategy called %d times, want 3", got)
	}
}

func TestAcquire_ReturnsFinalAttemptError(t *testing.T) {
	var calls atomic.Int32
	tr := testTracker(&fakeStrategy{
		tag: carrier.TagLEX,
		acquire: func(_ context.Context, _ *models.TrackRequest) (*models.TrackResult, error) {
			calls.Add(1)
			return nil, models.NewTrackError(models.ErrCodeNoTrackingData, "still nothing", nil)
		},
	})

	_, err := tr.Acquire(context.Background(), &models.TrackRequest{Carrier: "lex", Codes: "LX1"})

	var te *models.TrackError
	if !errors.As(err, &te) || te.Code != models.ErrCodeNoTrackingData {
		t.Fatalf("error = %v, want code %s", err, models.ErrCodeNoTrackingData)
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("strategy called %d times, want all 3 attempts", got)
	}
}

// Attempts must be strictly sequential: a new attempt never starts while
// the previous one is still running.
func TestAcquire_AttemptsAreSequential(t *testing.T) {
	var inFlight atomic.Int32
	tr := testTracker(&fakeStrategy{
		tag: carrier.TagLEX,
		acquire: func(_ context.Context, _ *models.TrackRequest) (*models.TrackResult, error) {
			if inFlight.Add(1) > 1 {
				t.Error("overlapping attempts detected")
			}
			time.Sleep(2 * time.Millisecond)
			inFlight.Add(-1)
			return nil, models.NewTrackError(models.ErrCodeNoTrackingData, "fail", nil)
		},
	})

	tr.Acquire(context.Background(), &models.TrackRequest{Carrier: "lex", Codes: "LX1"})
}

func TestAcquire_EmptyScreenshotIsInternalError(t *testing.T) {
	tr := testTracker(&fakeStrategy{
		tag: carrier.TagLEX,
		acquire: func(_ context.Context, _ *models.TrackRequest) (*models.TrackResult, error) {
			return &models.TrackResult{Status: "DELIVERED", RawStatus: "done"}, nil
		},
	})

	_, err := tr.Acquire(context.Background(), &models.TrackRequest{Carrier: "lex", Codes: "LX1"})

	var te *models.TrackError
	if !errors.As(err, &te) || te.Code != models.ErrCodeInternal {
		t.Fatalf("error = %v, want code %s", err, models.ErrCodeInternal)
	}
}

func TestStats_NilBrowser(t *testing.T) {
	tr := testTracker()
	if got := tr.Stats(); got.BrowserUp || got.PoolSize != 0 {
		t.Errorf("Stats with nil browser = %+v, want zero value", got)
	}
}
