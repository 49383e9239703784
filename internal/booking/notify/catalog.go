package notify

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"

	"github.com/cuongbtq/interpreter-booking/internal/booking/domain"
)

//go:embed templates.yaml
var defaultCatalog []byte

// Catalog holds the message templates for every channel.
type Catalog struct {
	Push  map[domain.NotificationType]map[string]map[string]string `yaml:"push"`
	SMS   map[string]string                                        `yaml:"sms"`
	Email map[string]string                                        `yaml:"email"`
}

// DefaultCatalog parses the catalog embedded in the binary.
func DefaultCatalog() (*Catalog, error) {
	return ParseCatalog(defaultCatalog)
}

// LoadCatalog reads a catalog file. An empty path selects the embedded
// catalog.
func LoadCatalog(path string) (*Catalog, error) {
	if path == "" {
		return DefaultCatalog()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read template catalog: %w", err)
	}
	return ParseCatalog(data)
}

// ParseCatalog decodes a YAML catalog and checks that every push variant
// carries an English message.
func ParseCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse template catalog: %w", err)
	}

	for typ, variants := range c.Push {
		for variant, langs := range variants {
			if langs["en"] == "" {
				return nil, fmt.Errorf("push template %s/%s has no en message", typ, variant)
			}
		}
	}

	return &c, nil
}

// PushMessage renders the localized push messages for a notification type
// and variant. An unknown variant falls back to "default".
func (c *Catalog) PushMessage(t domain.NotificationType, variant string, vars map[string]string) (map[string]string, error) {
	variants, ok := c.Push[t]
	if !ok {
		return nil, fmt.Errorf("no push template for %s", t)
	}
	langs, ok := variants[variant]
	if !ok {
		langs, ok = variants["default"]
		if !ok {
			return nil, fmt.Errorf("no push template for %s/%s", t, variant)
		}
	}

	out := make(map[string]string, len(langs))
	for lang, text := range langs {
		msg, err := render(text, vars)
		if err != nil {
			return nil, fmt.Errorf("push template %s/%s/%s: %w", t, variant, lang, err)
		}
		out[lang] = msg
	}
	return out, nil
}

// SMSBody renders an SMS template.
func (c *Catalog) SMSBody(key string, vars map[string]string) (string, error) {
	text, ok := c.SMS[key]
	if !ok {
		return "", fmt.Errorf("no sms template %q", key)
	}
	return render(text, vars)
}

// EmailBody renders an email template. Unknown keys render the variables as
// a plain list so a missing template never blocks delivery.
func (c *Catalog) EmailBody(key string, vars map[string]string) (string, error) {
	text, ok := c.Email[key]
	if !ok {
		var b strings.Builder
		for k, v := range vars {
			fmt.Fprintf(&b, "%s: %s\n", k, v)
		}
		return b.String(), nil
	}
	return render(text, vars)
}

func render(text string, vars map[string]string) (string, error) {
	tpl, err := template.New("msg").Option("missingkey=zero").Parse(text)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := tpl.Execute(&buf, vars); err != nil {
		return "", err
	}
	return buf.String(), nil
}
