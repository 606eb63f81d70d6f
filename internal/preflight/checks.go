package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"golang.org/x/sys/unix"

	"gametime/internal/config"
	"gametime/internal/dataset"
	"gametime/internal/runlog"
)

const steamProbePath = "/ISteamWebAPIUtil/GetSupportedAPIList/v0001/"

// CheckConfig validates the loaded configuration.
func CheckConfig(cfg *config.Config) Result {
	const name = "Configuration"
	if err := cfg.Validate(); err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	return Result{Name: name, Passed: true, Detail: "valid"}
}

// CheckSteam verifies that the Steam Web API is reachable and accepts the key.
func CheckSteam(ctx context.Context, baseURL, apiKey string, timeout time.Duration) Result {
	const name = "Steam Web API"

	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if base == "" {
		return Result{Name: name, Detail: "missing base url"}
	}
	if strings.TrimSpace(apiKey) == "" {
		return Result{Name: name, Detail: "missing api key (set STEAM_API_KEY)"}
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	checkCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	query := url.Values{}
	query.Set("key", strings.TrimSpace(apiKey))
	query.Set("format", "json")
	req, err := http.NewRequestWithContext(checkCtx, http.MethodGet, base+steamProbePath+"?"+query.Encode(), nil)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("check failed (%v)", err)}
	}

	client := &http.Client{Timeout: timeout}
	resp, err := client.Do(req)
	if err != nil {
		return Result{Name: name, Detail: summarizeRequestError(err)}
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return Result{Name: name, Passed: true, Detail: "Reachable, key accepted"}
	case http.StatusUnauthorized, http.StatusForbidden:
		return Result{Name: name, Detail: "auth failed (invalid or revoked api key)"}
	default:
		return Result{Name: name, Detail: fmt.Sprintf("check failed (%d)", resp.StatusCode)}
	}
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckCreatableDirectory passes when path is an accessible directory or can
// be created inside its nearest existing ancestor.
func CheckCreatableDirectory(name, path string) Result {
	dir := filepath.Clean(path)
	for {
		if _, err := os.Stat(dir); err == nil {
			break
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	result := CheckDirectoryAccess(name, dir)
	if result.Passed && dir != filepath.Clean(path) {
		result.Detail = fmt.Sprintf("%s (will be created)", path)
	}
	return result
}

// CheckUpdateLock reports whether another update currently holds the folder
// lock. A missing folder passes; CheckDirectoryAccess reports it.
func CheckUpdateLock(folder string) Result {
	const name = "Update lock"
	if _, err := os.Stat(folder); err != nil {
		return Result{Name: name, Passed: true, Detail: "not checked"}
	}
	lock := flock.New(dataset.LockPath(folder))
	ok, err := lock.TryRLock()
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("lock check failed (%v)", err)}
	}
	if !ok {
		return Result{Name: name, Detail: "an update is running"}
	}
	_ = lock.Unlock()
	return Result{Name: name, Passed: true, Detail: "idle"}
}

// CheckLedger opens (and if needed creates) the run ledger.
func CheckLedger(path string) Result {
	const name = "Run ledger"
	store, err := runlog.Open(path)
	if err != nil {
		if errors.Is(err, runlog.ErrSchemaMismatch) {
			return Result{Name: name, Detail: err.Error()}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", path, err)}
	}
	_ = store.Close()
	return Result{Name: name, Passed: true, Detail: path}
}

// CheckOffsiteConfig verifies the offsite settings without contacting the
// bucket.
func CheckOffsiteConfig(cfg config.Offsite) Result {
	const name = "Offsite mirror"
	if strings.TrimSpace(cfg.Bucket) == "" {
		return Result{Name: name, Detail: "missing bucket"}
	}
	target := "s3://" + cfg.Bucket
	if cfg.Endpoint != "" {
		target += " via " + cfg.Endpoint
	}
	return Result{Name: name, Passed: true, Detail: target}
}

func summarizeRequestError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "check timed out (Steam API unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "check timed out (Steam API unreachable)"
	}
	var uerr *url.Error
	if errors.As(err, &uerr) {
		return fmt.Sprintf("check failed (%v)", uerr.Err)
	}
	return err.Error()
}
