package main

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"gametime/internal/gametime"
)

type cliTestEnv struct {
	baseDir    string
	folder     string
	configPath string
	ledgerPath string
	promPath   string
	steamHits  *atomic.Int32
	ntfyTitles chan string
}

// setupCLITestEnv writes a config pointing at a temp dataset folder and a
// fake Steam API that reports playtime 100 + hit count for Ecorescue.
func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	t.Setenv("HOME", filepath.Join(base, "home"))
	t.Setenv("STEAM_API_KEY", "")
	t.Setenv("GAMETIME_DATASET_DIR", "")

	hits := new(atomic.Int32)
	steam := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("key") != "test-key" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		switch r.URL.Path {
		case "/IPlayerService/GetRecentlyPlayedGames/v0001/":
			n := hits.Add(1)
			if r.URL.Query().Get("steamid") == "76561198000000009" {
				_, _ = w.Write([]byte(`{"response":{"total_count":0}}`))
				return
			}
			fmt.Fprintf(w, `{"response":{"total_count":1,"games":[{"appid":2163350,"playtime_forever":%d}]}}`, 100+n)
		case "/ISteamWebAPIUtil/GetSupportedAPIList/v0001/":
			_, _ = w.Write([]byte(`{"apilist":{"interfaces":[]}}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(steam.Close)

	titles := make(chan string, 16)
	ntfy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		titles <- r.Header.Get("Title")
	}))
	t.Cleanup(ntfy.Close)

	env := &cliTestEnv{
		baseDir:    base,
		folder:     filepath.Join(base, "dataset"),
		configPath: filepath.Join(base, "config.toml"),
		ledgerPath: filepath.Join(base, "runs.db"),
		promPath:   filepath.Join(base, "textfile", "gametime.prom"),
		steamHits:  hits,
		ntfyTitles: titles,
	}
	if err := os.MkdirAll(env.folder, 0o755); err != nil {
		t.Fatalf("mkdir dataset: %v", err)
	}
	content := fmt.Sprintf(`[dataset]
folder = %q

[steam]
api_key = "test-key"
base_url = %q
pacing_millis = 0

[logging]
level = "warn"

[ledger]
enabled = true
path = %q

[metrics]
textfile_path = %q

[notifications]
ntfy_topic = %q
`, env.folder, steam.URL, env.ledgerPath, env.promPath, ntfy.URL+"/study")
	if err := os.WriteFile(env.configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return env
}

func runCLI(t *testing.T, env *cliTestEnv, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--config", env.configPath}, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

// writeSeries stores a 6-hourly series gaining 60 minutes per sample for one
// subject, starting 2024-04-12.
func writeSeries(t *testing.T, env *cliTestEnv, id string, samples int) {
	t.Helper()
	start := time.Date(2024, 4, 12, 0, 0, 0, 0, time.UTC)
	rows := make([]gametime.Observation, 0, samples)
	for i := 0; i < samples; i++ {
		rows = append(rows, gametime.Observation{
			SteamID:  id,
			GameID:   "2163350",
			AcqTime:  start.Add(time.Duration(i) * 6 * time.Hour),
			GameTime: float64(60 * (i + 1)),
		})
	}
	data, err := gametime.EncodeCSV(gametime.NewTableWithDiffs(rows))
	if err != nil {
		t.Fatalf("encode dataset: %v", err)
	}
	writeFile(t, env.folder, "gametime.csv", string(data))
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}

func TestConfigInitAndValidate(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, env, "config", "validate")
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")
	requireContains(t, out, "Game: Ecorescue (ecorescue, app 2163350)")

	target := filepath.Join(t.TempDir(), "config.toml")
	out, _, err = runCLI(t, env, "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, _, err := runCLI(t, env, "config", "init", "--path", target); err == nil {
		t.Fatal("expected init to refuse overwriting without --overwrite")
	}
}

func TestUpdateWritesDatasetAndLedger(t *testing.T) {
	env := setupCLITestEnv(t)
	ids := writeFile(t, env.baseDir, "eco.txt", "# cohort A\n76561198000000001\n\n76561198000000009\n")

	out, stderr, err := runCLI(t, env, "update", "--ids", "ecorescue="+ids, "--format", "csv")
	if err != nil {
		t.Fatalf("update: %v (stderr %s)", err, stderr)
	}
	requireContains(t, out, "Subjects,2")
	requireContains(t, out, "Missing,1")
	requireContains(t, out, "Fetch not_recent,1")
	requireContains(t, stderr, "not found in user's '76561198000000009'")
	if env.steamHits.Load() != 2 {
		t.Fatalf("expected 2 Steam calls, got %d", env.steamHits.Load())
	}

	data, err := os.ReadFile(filepath.Join(env.folder, "gametime.csv"))
	if err != nil {
		t.Fatalf("read dataset: %v", err)
	}
	requireContains(t, string(data), ",steam_id,acq_time,game_time,game_id,game_time_diff")
	requireContains(t, string(data), "76561198000000001")
	if _, err := os.Stat(env.promPath); err != nil {
		t.Fatalf("metrics textfile not written: %v", err)
	}
	if title := nextNotification(t, env); title != "Gametime - Update Complete" {
		t.Fatalf("unexpected notification %q", title)
	}

	out, stderr, err = runCLI(t, env, "logs", "-n", "0")
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	requireContains(t, stderr, filepath.Join(env.folder, "logs", "gametime_"))
	requireContains(t, out, "not found in user's '76561198000000009'")

	out, _, err = runCLI(t, env, "runs", "--format", "csv")
	if err != nil {
		t.Fatalf("runs: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 2 || !strings.HasPrefix(lines[0], "acq_time,run_id") {
		t.Fatalf("unexpected runs output %q", out)
	}
}

func TestUpdateRejectsBadInputs(t *testing.T) {
	env := setupCLITestEnv(t)
	ids := writeFile(t, env.baseDir, "ids.txt", "76561198000000001\n")

	if _, _, err := runCLI(t, env, "update"); err == nil {
		t.Fatal("expected error without --ids")
	}
	_, _, err := runCLI(t, env, "update", "--ids", "tetris="+ids)
	if err == nil || !strings.Contains(err.Error(), "unknown game") {
		t.Fatalf("expected unknown game error, got %v", err)
	}
	_, _, err = runCLI(t, env, "update", "--ids", "ecorescue="+ids, "--ids", "bejeweled="+ids)
	if err == nil || !strings.Contains(err.Error(), "The same 'steam_id'") {
		t.Fatalf("expected cross-game duplicate error, got %v", err)
	}
	if title := nextNotification(t, env); title != "Gametime - Error" {
		t.Fatalf("expected failure notification, got %q", title)
	}
	if env.steamHits.Load() != 0 {
		t.Fatalf("invalid input must not reach Steam, got %d calls", env.steamHits.Load())
	}
}

func TestSelectFiltersAndResamples(t *testing.T) {
	env := setupCLITestEnv(t)
	writeSeries(t, env, "76561198000000001", 12)

	out, _, err := runCLI(t, env, "select", "--start", "2024-04-12 12:00", "--end", "2024-04-13", "--format", "csv")
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected header plus 3 rows, got %q", out)
	}
	if !strings.HasSuffix(lines[1], ",180.0,2163350,") {
		t.Fatalf("first selected row must restart the diff, got %q", lines[1])
	}

	out, _, err = runCLI(t, env, "select", "--freq", "1D", "--rename", "--format", "json")
	if err != nil {
		t.Fatalf("select resample: %v", err)
	}
	requireContains(t, out, `"game_id": "Ecorescue"`)
	requireContains(t, out, `"game_time_diff": 240`)
}

func TestSelectDailyTotalsWithMapping(t *testing.T) {
	env := setupCLITestEnv(t)
	writeSeries(t, env, "76561198000000001", 8)
	mapping := writeFile(t, env.baseDir, "subjects.toml", "[subjects]\n76561198000000001 = \"P01\"\n")

	out, _, err := runCLI(t, env, "select", "--daily", "--mapping", mapping, "--format", "csv")
	if err != nil {
		t.Fatalf("select daily: %v", err)
	}
	want := "steam_id,game_id,day,daily_total\nP01,Ecorescue,2024-04-12,180\nP01,Ecorescue,2024-04-13,240\n"
	if out != want {
		t.Fatalf("daily totals = %q, want %q", out, want)
	}
}

func TestRuleListsQualifyingSubjects(t *testing.T) {
	env := setupCLITestEnv(t)
	writeSeries(t, env, "76561198000000001", 60)
	starts := writeFile(t, env.baseDir, "starts.csv", "76561198000000001,2024-04-12\n")

	out, stderr, err := runCLI(t, env, "rule", "--starts", starts, "--rule", ">", "--amount", "1560", "--all-weeks", "--format", "csv")
	if err != nil {
		t.Fatalf("rule: %v", err)
	}
	if out != "steam_id\n76561198000000001\n" {
		t.Fatalf("unexpected rule output %q", out)
	}
	requireContains(t, stderr, "1 of 1 subjects")

	out, _, err = runCLI(t, env, "rule", "--starts", starts, "--rule", ">", "--amount", "1700", "--format", "json")
	if err != nil {
		t.Fatalf("rule json: %v", err)
	}
	if strings.TrimSpace(out) != "[]" {
		t.Fatalf("expected no subject above 1700, got %q", out)
	}

	if _, _, err := runCLI(t, env, "rule", "--starts", starts, "--rule", "==", "--amount", "10"); err == nil {
		t.Fatal("expected invalid comparison error")
	}
}

func TestRandomize(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, env, "randomize", "--group", "1,2,3", "--group", "35,36,37", "--group", "74,75,76", "--value", "75", "--format", "csv")
	if err != nil {
		t.Fatalf("randomize: %v", err)
	}
	if out != "group,reason\n1,objective\n" {
		t.Fatalf("unexpected decision %q", out)
	}

	out, _, err = runCLI(t, env, "randomize", "--group", "1,2", "--group", "", "--value", "4", "--seed", "7", "--format", "json")
	if err != nil {
		t.Fatalf("randomize empty group: %v", err)
	}
	requireContains(t, out, `"group": 2`)
	requireContains(t, out, `"reason": "empty_group"`)

	_, stderr, err := runCLI(t, env, "randomize", "--group", "1", "--group", "2", "--value", "3", "--strategy", "average", "--format", "csv")
	if err != nil {
		t.Fatalf("randomize average: %v", err)
	}
	requireContains(t, stderr, "Do not use this strategy")

	if _, _, err := runCLI(t, env, "randomize", "--group", "1,x", "--value", "3"); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestPruneRemovesExpiredArtifacts(t *testing.T) {
	env := setupCLITestEnv(t)
	backup := filepath.Join(env.folder, "backup")
	if err := os.MkdirAll(backup, 0o755); err != nil {
		t.Fatal(err)
	}
	old := writeFile(t, backup, "gametime_20200101-000000.csv", "x")
	keep := writeFile(t, backup, "notes.txt", "x")

	out, stderr, err := runCLI(t, env, "prune")
	if err != nil {
		t.Fatalf("prune: %v", err)
	}
	requireContains(t, out, old)
	requireContains(t, stderr, "Skipping file 'notes.txt' with unexpected name format.")
	if _, err := os.Stat(keep); err != nil {
		t.Fatalf("unexpected file removed: %v", err)
	}
}

func TestDoctorReportsChecks(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, env, "doctor")
	if err != nil {
		t.Fatalf("doctor: %v\n%s", err, out)
	}
	requireContains(t, out, "Steam Web API")
	requireContains(t, out, "Run ledger")

	out, _, err = runCLI(t, env, "doctor", "--notify")
	if err != nil {
		t.Fatalf("doctor --notify: %v\n%s", err, out)
	}
	requireContains(t, out, "Test notification sent")
	if title := <-env.ntfyTitles; title != "Gametime - Test" {
		t.Fatalf("unexpected test notification title %q", title)
	}

	_, _, err = runCLI(t, env, "doctor", filepath.Join(env.baseDir, "missing"))
	if err == nil {
		t.Fatal("expected doctor to fail for a missing folder")
	}
}

func nextNotification(t *testing.T, env *cliTestEnv) string {
	t.Helper()
	select {
	case title := <-env.ntfyTitles:
		return title
	default:
		t.Fatal("expected a notification")
		return ""
	}
}
