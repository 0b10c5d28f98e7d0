package cmd

import (
	"go.uber.org/dig"

	"github.com/platformci/repobump/application"
	"github.com/platformci/repobump/config"
	"github.com/platformci/repobump/domain"
	"github.com/platformci/repobump/infrastructure/gitrepo"
	"github.com/platformci/repobump/infrastructure/manifest"
	"github.com/platformci/repobump/infrastructure/provider/github"
)

// buildContainer registers all collaborators with a DIG container,
// bottom-up: settings -> stores/clients -> service.
func buildContainer(settings *config.Settings) (*dig.Container, error) {
	container := dig.New()

	constructors := []any{
		func() *config.Settings { return settings },
		manifest.NewStore,
		func(s *config.Settings) (domain.Worktree, error) {
			return gitrepo.Open(s.ParentDir, s.Token)
		},
		func(s *config.Settings) domain.Provider {
			return github.New(s.Token)
		},
		application.NewReconcileService,
	}

	for _, constructor := range constructors {
		if err := container.Provide(constructor); err != nil {
			return nil, err
		}
	}

	return container, nil
}
