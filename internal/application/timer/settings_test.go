package timer

import (
	"testing"

	"github.com/GwydionBr/life-manager-sub000/internal/domain"
)

func TestResolveRoundingPrecedence(t *testing.T) {
	def := domain.RoundingSettings{Interval: 1, Direction: domain.RoundNearest}
	accountSettings := domain.RoundingSettings{Interval: 5, Direction: domain.RoundUp}
	projectSettings := domain.RoundingSettings{InFragments: true, FragmentInterval: 10}

	account := &domain.Account{Rounding: &accountSettings}
	project := &domain.Project{Rounding: &projectSettings}

	if got := ResolveRounding(project, account, def); got != projectSettings {
		t.Errorf("project tier should win, got %+v", got)
	}
	if got := ResolveRounding(&domain.Project{}, account, def); got != accountSettings {
		t.Errorf("account tier should win without project override, got %+v", got)
	}
	if got := ResolveRounding(nil, account, def); got != accountSettings {
		t.Errorf("nil project should fall through to account, got %+v", got)
	}
	if got := ResolveRounding(&domain.Project{}, &domain.Account{}, def); got != def {
		t.Errorf("default tier should apply, got %+v", got)
	}
	if got := ResolveRounding(nil, nil, def); got != def {
		t.Errorf("all-nil should yield default, got %+v", got)
	}
}
