// Package logging gives every pinnode component a named slog logger whose
// level can be set per module and changed while the daemon runs.
//
// Each record goes to up to three places:
//   - stdout, as text or JSON, unless stdout is closed or /dev/null
//   - the systemd journal when journald is listening, with attributes as
//     upper-case fields (ROUTE, STATUS, PIN)
//   - a ring buffer of the last 1000 entries, served by GET /api/logs and
//     counted per level in the pinnode_log_entries_total metric
//
// Typical use:
//
//	logging.Initialize(logging.Config{
//		Level:   "info",
//		Format:  "text",
//		Modules: map[string]string{"router": "debug"},
//	})
//	logger := logging.GetLogger("router")
//	logger.Info("Device request", "route", "gpio", "status", 200)
//
// A logger obtained before Initialize is valid and picks up the
// configured level once Initialize runs.
//
// Levels come from the [logging] table of pinnode.toml. Module levels may
// be written inline or under [logging.modules]:
//
//	[logging]
//	level = "info"
//	router = "debug"
//
//	[logging.modules]
//	mqtt = "warn"
//
// Saving the file applies new levels through SetLevels without a restart.
//
// On a device running under systemd:
//
//	journalctl -t pinnode MODULE=router -f
//	journalctl -t pinnode -p warning --since "10m"
package logging
