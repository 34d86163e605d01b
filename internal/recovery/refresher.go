package recovery

import (
	"context"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/daybreak-labs/daybreak-backend/internal/settings"
	pkgerrors "github.com/daybreak-labs/daybreak-backend/pkg/errors"
	"github.com/daybreak-labs/daybreak-backend/pkg/kv"
	"github.com/daybreak-labs/daybreak-backend/pkg/logger"
)

const (
	systemCollection = "system"
	signatureKey     = "settings_signature"

	defaultDebounce = 45 * time.Second
)

// Triggers that invalidate the settings signature no matter what it says:
// the signature only covers settings content, not ambient state like the
// device timezone or a restored backup.
var hardResyncTriggers = map[string]bool{
	"timezone_change": true,
	"backup_restore":  true,
}

// RefresherParams groups refresher dependencies.
type RefresherParams struct {
	Orchestrator *Orchestrator
	Settings     *settings.Service
	KV           *kv.Store
	Logger       *logger.Logger
	Debounce     time.Duration
}

// Refresher debounces and deduplicates recovery requests. Settings screens
// fire change events on every toggle; running a full reconciliation per
// keystroke would thrash the alarm capability, so requests collapse through
// a debounce window and a settings-content signature.
type Refresher struct {
	orch     *Orchestrator
	settings *settings.Service
	kv       *kv.Store
	logg     *logger.Logger
	debounce time.Duration
	now      func() time.Time

	mu       sync.Mutex
	inFlight bool
	lastRun  time.Time
}

// NewRefresher builds the debounced recovery front door.
func NewRefresher(params RefresherParams) (*Refresher, error) {
	if params.Orchestrator == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "orchestrator is required")
	}
	if params.Settings == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "settings service is required")
	}
	if params.KV == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "kv store is required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "logger is required")
	}
	debounce := params.Debounce
	if debounce <= 0 {
		debounce = defaultDebounce
	}
	return &Refresher{
		orch:     params.Orchestrator,
		settings: params.Settings,
		kv:       params.KV,
		logg:     params.Logger,
		debounce: debounce,
		now:      time.Now,
	}, nil
}

// RefreshOptions steers one refresh request.
type RefreshOptions struct {
	// Trigger names the event that asked for the refresh (settings_change,
	// app_resume, timezone_change, backup_restore, manual).
	Trigger string
	// Force bypasses both the debounce and the signature fast path.
	Force bool
	// Headless marks an invocation from the background runtime.
	Headless bool
}

// Refresh runs recovery if the request survives debouncing and the settings
// signature check. Returns whether a run happened and its result.
func (r *Refresher) Refresh(ctx context.Context, opts RefreshOptions) (bool, Result) {
	ctx = r.logg.WithField(ctx, "trigger", opts.Trigger)

	signature, sigErr := r.currentSignature(ctx)
	if sigErr != nil {
		r.logg.Warn(ctx, fmt.Sprintf("settings signature unavailable: %v", sigErr))
	}
	changed := sigErr != nil || r.signatureChanged(ctx, signature)

	r.mu.Lock()
	if r.inFlight {
		r.mu.Unlock()
		r.logg.Info(ctx, "recovery already in flight; request dropped")
		return false, Result{}
	}
	// A changed signature bypasses the debounce: the user altered something
	// that affects what should be scheduled, so waiting is wrong.
	if !opts.Force && !changed {
		if since := r.now().Sub(r.lastRun); !r.lastRun.IsZero() && since < r.debounce {
			r.mu.Unlock()
			r.logg.Info(ctx, fmt.Sprintf("refresh debounced (%s since last run)", since.Round(time.Millisecond)))
			return false, Result{}
		}
		if !hardResyncTriggers[opts.Trigger] {
			r.mu.Unlock()
			r.logg.Info(ctx, "settings unchanged; skipping recovery")
			return false, Result{}
		}
	}
	r.inFlight = true
	r.mu.Unlock()

	result := r.orch.RunRecovery(ctx, Options{
		BootstrapForBackground: opts.Headless,
		SourceFlow:             opts.Trigger,
	})

	r.mu.Lock()
	r.inFlight = false
	r.lastRun = r.now()
	r.mu.Unlock()

	// The signature persists only after a successful run, so a failed run
	// leaves the next request eligible to retry.
	if result.Success && sigErr == nil {
		if err := r.kv.Put(ctx, systemCollection, signatureKey, signature); err != nil {
			r.logg.Warn(ctx, fmt.Sprintf("settings signature not persisted: %v", err))
		}
	}
	return true, result
}

func (r *Refresher) currentSignature(ctx context.Context) (string, error) {
	snapshot, err := r.settings.Snapshot(ctx)
	if err != nil {
		return "", err
	}
	hash := fnv.New64a()
	hash.Write([]byte(snapshot))
	return fmt.Sprintf("%016x", hash.Sum64()), nil
}

func (r *Refresher) signatureChanged(ctx context.Context, signature string) bool {
	var stored string
	found, err := r.kv.Get(ctx, systemCollection, signatureKey, &stored)
	if err != nil || !found {
		return true
	}
	return stored != signature
}
