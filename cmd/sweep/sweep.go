package sweep

import (
	"os"
	"path/filepath"
	"time"

	"github.com/dropbox/godropbox/time2"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/draftforge/go-contract-session/internal/config"
	"github.com/draftforge/go-contract-session/internal/session"
)

// New returns the one-shot sweep command for session snapshot files exported
// to disk. Live deployments keep sessions in the store and are swept by the
// server's background loop; this command cleans up file exports left behind
// by backups or migrations.
func New() *cobra.Command {
	var dir string
	var maxAgeHours int

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Delete stale session snapshot files and exit",
		Run: func(cmd *cobra.Command, args []string) {
			cfg := config.DefaultServiceConfigFromEnv()
			ttl := session.TTLPolicy{
				Draft:  time.Duration(cfg.SessionTTL.DraftHours) * time.Hour,
				Filled: time.Duration(cfg.SessionTTL.FilledHours) * time.Hour,
				Signed: time.Duration(cfg.SessionTTL.SignedDays) * 24 * time.Hour,
			}

			var ageCap time.Duration
			if maxAgeHours > 0 {
				ageCap = time.Duration(maxAgeHours) * time.Hour
			}

			deleted, failed := sweepDir(dir, cfg.DocumentsDir, ttl, ageCap, time2.DefaultClock.Now())
			log.Info().Int("deleted", deleted).Int("errors", failed).Msg("Sweep finished")
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "data/sessions", "Directory holding exported session JSON files")
	cmd.Flags().IntVar(&maxAgeHours, "max-age-hours", 0, "Cap the per-state TTL horizon (0 keeps the configured tiers)")

	return cmd
}

func sweepDir(dir, documentsDir string, ttl session.TTLPolicy, maxAge time.Duration, now time.Time) (deleted, failed int) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		log.Warn().Err(err).Str("dir", dir).Msg("Cannot list session snapshots")
		return 0, 1
	}

	for _, path := range paths {
		raw, err := os.ReadFile(path)
		if err != nil {
			log.Warn().Err(err).Str("path", path).Msg("Cannot read session snapshot")
			failed++
			continue
		}

		sess, err := session.Unmarshal(raw)
		if err != nil {
			log.Warn().Err(err).Str("path", path).Msg("Cannot decode session snapshot")
			failed++
			continue
		}

		// A surviving final document protects a completed session even if
		// its snapshot has aged out.
		if sess.State == session.StateCompleted {
			artifact := filepath.Join(documentsDir, "contract_"+sess.ID+".docx")
			if _, err := os.Stat(artifact); err == nil {
				continue
			}
		}

		horizon := ttl.ForState(sess.State)
		if maxAge > 0 && maxAge < horizon {
			horizon = maxAge
		}

		updatedAt := sess.UpdatedAt
		if updatedAt.IsZero() {
			if info, err := os.Stat(path); err == nil {
				updatedAt = info.ModTime()
			}
		}

		if now.Sub(updatedAt) <= horizon {
			continue
		}

		if err := os.Remove(path); err != nil {
			log.Warn().Err(err).Str("path", path).Msg("Cannot delete session snapshot")
			failed++
			continue
		}
		log.Info().Str("session_id", sess.ID).Time("updated_at", updatedAt).Msg("Deleted stale session snapshot")
		deleted++
	}

	return deleted, failed
}
