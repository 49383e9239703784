package memory

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/cuongbtq/interpreter-booking/internal/booking/domain"
)

// Seed is the fixture format the memory store can be started from.
type Seed struct {
	Languages []SeedLanguage `yaml:"languages"`
	Users     []SeedUser     `yaml:"users"`
}

type SeedLanguage struct {
	ID   int64  `yaml:"id"`
	Name string `yaml:"name"`
}

type SeedUser struct {
	ID                 int64   `yaml:"id"`
	Name               string  `yaml:"name"`
	Email              string  `yaml:"email"`
	Mobile             string  `yaml:"mobile"`
	UserType           string  `yaml:"user_type"`
	Disabled           bool    `yaml:"disabled"`
	TranslatorType     string  `yaml:"translator_type"`
	TranslatorLevel    string  `yaml:"translator_level"`
	Gender             string  `yaml:"gender"`
	City               string  `yaml:"city"`
	ConsumerType       string  `yaml:"consumer_type"`
	CustomerType       string  `yaml:"customer_type"`
	NotGetNotification bool    `yaml:"not_get_notification"`
	NotGetNighttime    bool    `yaml:"not_get_nighttime"`
	NotGetEmergency    bool    `yaml:"not_get_emergency"`
	LanguageIDs        []int64 `yaml:"language_ids"`
	Blacklist          []int64 `yaml:"blacklist"`
}

func (u SeedUser) toDomain() domain.User {
	return domain.User{
		ID:                 u.ID,
		Name:               u.Name,
		Email:              u.Email,
		Mobile:             u.Mobile,
		UserType:           domain.UserType(u.UserType),
		Disabled:           u.Disabled,
		TranslatorType:     u.TranslatorType,
		TranslatorLevel:    u.TranslatorLevel,
		Gender:             u.Gender,
		City:               u.City,
		ConsumerType:       u.ConsumerType,
		CustomerType:       u.CustomerType,
		NotGetNotification: u.NotGetNotification,
		NotGetNighttime:    u.NotGetNighttime,
		NotGetEmergency:    u.NotGetEmergency,
		LanguageIDs:        u.LanguageIDs,
		Blacklist:          u.Blacklist,
	}
}

// Apply adds every language and user of the seed.
func (s *Store) Apply(seed Seed) error {
	for _, l := range seed.Languages {
		s.AddLanguage(l.ID, l.Name)
	}
	for _, u := range seed.Users {
		if u.ID <= 0 {
			return fmt.Errorf("seed user %q has no id", u.Email)
		}
		s.AddUser(u.toDomain())
	}
	return nil
}

// LoadSeed reads a YAML seed file into the store.
func (s *Store) LoadSeed(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read seed file: %w", err)
	}
	var seed Seed
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return fmt.Errorf("failed to parse seed file: %w", err)
	}
	return s.Apply(seed)
}
