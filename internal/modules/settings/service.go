package settings

import (
	"fmt"
	"strings"

	"github.com/aristath/sharesathi/internal/events"
	"github.com/rs/zerolog"
)

// Service exposes whitelisted user preferences on top of the repository.
type Service struct {
	repo   *Repository
	events *events.Manager
	log    zerolog.Logger
}

// NewService creates a settings service. eventManager may be nil.
func NewService(repo *Repository, eventManager *events.Manager, log zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		events: eventManager,
		log:    log.With().Str("service", "settings").Logger(),
	}
}

// GetAll returns every whitelisted setting, stored values overriding defaults.
func (s *Service) GetAll() (map[string]string, error) {
	stored, err := s.repo.GetAll()
	if err != nil {
		return nil, err
	}

	result := make(map[string]string, len(Definitions))
	for _, d := range Definitions {
		result[d.Key] = d.Default
		if v, ok := stored[d.Key]; ok {
			result[d.Key] = v
		}
	}
	return result, nil
}

// Set validates and stores a whitelisted setting.
func (s *Service) Set(key, value string) error {
	def, ok := Lookup(key)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSetting, key)
	}

	value = strings.TrimSpace(value)
	if err := def.Validate(value); err != nil {
		return err
	}

	if err := s.repo.Set(key, value, &def.Description); err != nil {
		return err
	}

	s.log.Info().Str("key", key).Str("value", value).Msg("Setting updated")
	if s.events != nil {
		s.events.Emit("settings", &events.SettingsChangedData{Key: key, Value: value})
	}
	return nil
}

// InvestmentDefaults returns the calculator defaults, falling back to the
// built-in values when the stored ones are missing or unreadable.
func (s *Service) InvestmentDefaults() (amount float64, yearsBack int) {
	amount, err := s.repo.GetFloat(KeyDefaultInvestmentAmount, 10000)
	if err != nil || amount <= 0 {
		amount = 10000
	}

	yearsBack, err = s.repo.GetInt(KeyDefaultYearsBack, 5)
	if err != nil {
		yearsBack = 5
	}
	return amount, yearsBack
}

// ChatProvider returns the preferred chat provider name.
func (s *Service) ChatProvider() string {
	v, err := s.repo.Get(KeyChatProvider)
	if err != nil || v == nil {
		return "auto"
	}
	return *v
}
