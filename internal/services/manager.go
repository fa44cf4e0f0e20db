package services

import (
	"github.com/SAP-F-2025/mastery-service/internal/cache"
	"github.com/SAP-F-2025/mastery-service/internal/composer"
	"github.com/SAP-F-2025/mastery-service/internal/config"
	"github.com/SAP-F-2025/mastery-service/internal/events"
	"github.com/SAP-F-2025/mastery-service/internal/generator"
	"github.com/SAP-F-2025/mastery-service/internal/profile"
	"github.com/SAP-F-2025/mastery-service/internal/repositories"
	"github.com/SAP-F-2025/mastery-service/internal/utils"
	"github.com/SAP-F-2025/mastery-service/internal/validator"
)

// ServiceManager wires the service layer from its infrastructure pieces.
type ServiceManager interface {
	Session() SessionService
	Profile() ProfileService
	Content() ContentService
}

type serviceManager struct {
	session SessionService
	profile ProfileService
	content ContentService
}

type ManagerDeps struct {
	ProfileRepo repositories.ProfileRepository
	Cache       cache.CacheService
	Generator   generator.Client
	Publisher   events.EventPublisher
	Validator   *validator.Validator
	Logger      utils.Logger
	Config      *config.Config
}

func NewServiceManager(deps ManagerDeps) ServiceManager {
	tuning := deps.Config.Tuning

	store := profile.NewStore(deps.ProfileRepo, deps.Cache, deps.Logger, profile.Config{
		SmoothingFactor: tuning.SmoothingFactor,
		WeakScoreCutoff: tuning.WeakScoreCutoff,
		TrendDelta:      tuning.TrendDelta,
	})
	content := NewContentService(deps.Generator, deps.Logger)
	quizComposer := composer.New(store, deps.Generator, deps.Logger, composer.Config{
		WeakRatio: tuning.WeakQuestionRatio,
	})

	return &serviceManager{
		session: NewSessionService(store, content, quizComposer, deps.Publisher, deps.Validator, deps.Logger, tuning),
		profile: NewProfileService(store, deps.Logger),
		content: content,
	}
}

func (m *serviceManager) Session() SessionService { return m.session }
func (m *serviceManager) Profile() ProfileService { return m.profile }
func (m *serviceManager) Content() ContentService { return m.content }
