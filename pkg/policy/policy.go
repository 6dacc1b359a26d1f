package policy

import "github.com/kart-io/buildnotify/pkg/build"

// ShouldNotify applies the "only on failure or recovery" flag to rec.
// Unset never notifies, Disabled always does, Enabled defers to
// IsFailureOrRecovery.
func ShouldNotify(onlyOnFailureOrRecovery Flag, rec build.Record) bool {
	switch onlyOnFailureOrRecovery {
	case Disabled:
		return true
	case Enabled:
		return IsFailureOrRecovery(rec)
	default:
		return false
	}
}

// IsFailureOrRecovery reports whether rec failed, is unstable, or succeeded
// right after a build that did not. Aborted and unfinished builds never count.
func IsFailureOrRecovery(rec build.Record) bool {
	switch rec.Result() {
	case build.ResultFailure, build.ResultUnstable:
		return true
	case build.ResultSuccess:
		prev, ok := rec.PreviousResult()
		return ok && prev != build.ResultSuccess
	default:
		return false
	}
}

// Reason describes the decision for the build log.
func Reason(onlyOnFailureOrRecovery Flag, rec build.Record) string {
	switch onlyOnFailureOrRecovery {
	case Disabled:
		return "notify on every build"
	case Enabled:
		if IsFailureOrRecovery(rec) {
			if rec.Result() == build.ResultSuccess {
				return "recovery"
			}
			return "failure"
		}
		return "neither failure nor recovery"
	default:
		return "only-on-failure-or-recovery not configured"
	}
}
