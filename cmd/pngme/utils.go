package pngme

import (
	"runtime/debug"

	semver3 "github.com/blang/semver"
	semver "github.com/blang/semver/v4"
	"github.com/rhysd/go-github-selfupdate/selfupdate"
)

func selfUpdate() error {
	v := version
	// Use build info if tag overridden at build-time
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, s := range info.Settings {
			if s.Key == "vcs.revision" && len(v) == 0 {
				v = s.Value
			}
		}
	}
	// parse semantic version (strip leading v)
	ver, err := semver.ParseTolerant(v)
	if err != nil {
		ver = semver.MustParse("0.0.0")
	}
	// Update from GitHub Releases: AlekLefebvre/pngme
	latest, err := selfupdate.UpdateSelf(semver3.MustParse(ver.String()), "AlekLefebvre/pngme")
	if err != nil {
		return err
	}
	_ = latest
	return nil
}

// pick resolves a setting with flag > local config > global config
// precedence. Zero values count as unset at every level.
func pick[T comparable](cli T, local, global *T) T {
	var zero T
	if cli != zero {
		return cli
	}
	if local != nil && *local != zero {
		return *local
	}
	if global != nil && *global != zero {
		return *global
	}
	return zero
}

// pickBool keeps an explicit local false ahead of a global true, so it
// cannot share the zero-skip rule above.
func pickBool(cli bool, local, global *bool) bool {
	if cli {
		return true
	}
	if local != nil {
		return *local
	}
	if global != nil {
		return *global
	}
	return false
}
