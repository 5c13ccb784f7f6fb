package timer

import "github.com/GwydionBr/life-manager-sub000/internal/domain"

// ResolveRounding picks the rounding settings for a new timer.
//
// Precedence: project override, then account defaults, then the built-in
// default. A tier only applies when it carries settings at all; there is no
// per-field merging across tiers.
func ResolveRounding(project *domain.Project, account *domain.Account, def domain.RoundingSettings) domain.RoundingSettings {
	if project != nil && project.Rounding != nil {
		return *project.Rounding
	}
	if account != nil && account.Rounding != nil {
		return *account.Rounding
	}
	return def
}
