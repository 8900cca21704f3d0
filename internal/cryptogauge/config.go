package cryptogauge

import (
	"fmt"
	"net/url"
	"os"
	"regexp"
	"sync"

	"gopkg.in/yaml.v3"
)

type config struct {
	Server struct {
		Host       string `yaml:"host"`
		Port       uint16 `yaml:"port"`
		BaseURL    string `yaml:"base-url"`
		AssetsPath string `yaml:"assets-path"`
	} `yaml:"server"`

	Upstream upstreamConfig `yaml:"upstream"`
	Pages    []page         `yaml:"pages"`
}

type upstreamConfig struct {
	BaseURL       string        `yaml:"base-url"`
	BearerToken   string        `yaml:"bearer-token"`
	Timeout       durationField `yaml:"timeout"`
	AllowInsecure bool          `yaml:"allow-insecure"`
}

type page struct {
	Title   string `yaml:"name"`
	Slug    string `yaml:"slug"`
	Width   string `yaml:"width"`
	Columns []struct {
		Size    string  `yaml:"size"`
		Widgets widgets `yaml:"widgets"`
	} `yaml:"columns"`
	mu sync.Mutex
}

func newConfig() *config {
	config := &config{}

	config.Server.Port = 8080
	config.Upstream.BaseURL = defaultGaugeBaseURL

	return config
}

func newConfigFromFile(path string) (*config, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	return newConfigFromYAML(contents)
}

func newConfigFromYAML(contents []byte) (*config, error) {
	contents, err := expandEnvVariables(contents)
	if err != nil {
		return nil, err
	}

	config := newConfig()

	if err = yaml.Unmarshal(contents, config); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if err = configIsValid(config); err != nil {
		return nil, err
	}

	return config, nil
}

var envVariablePattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// expandEnvVariables replaces ${NAME} with the value of the environment
// variable, unset variables are an error so secrets don't silently go missing.
func expandEnvVariables(contents []byte) ([]byte, error) {
	var missing []string

	expanded := envVariablePattern.ReplaceAllFunc(contents, func(match []byte) []byte {
		name := string(envVariablePattern.FindSubmatch(match)[1])

		value, found := os.LookupEnv(name)
		if !found {
			missing = append(missing, name)
			return match
		}

		return []byte(value)
	})

	if len(missing) > 0 {
		return nil, fmt.Errorf("environment variable(s) not set: %v", missing)
	}

	return expanded, nil
}

func configIsValid(config *config) error {
	upstreamURL, err := url.Parse(config.Upstream.BaseURL)
	if err != nil {
		return fmt.Errorf("upstream base-url is invalid: %w", err)
	}

	if upstreamURL.Scheme != "http" && upstreamURL.Scheme != "https" {
		return fmt.Errorf("upstream base-url must be an http or https URL, got %q", config.Upstream.BaseURL)
	}

	if len(config.Pages) == 0 {
		return fmt.Errorf("no pages configured")
	}

	for i := range config.Pages {
		if config.Pages[i].Title == "" {
			return fmt.Errorf("page %d has no name", i+1)
		}

		if len(config.Pages[i].Columns) == 0 {
			return fmt.Errorf("page %d has no columns", i+1)
		}

		if len(config.Pages[i].Columns) > 3 {
			return fmt.Errorf("page %d has more than 3 columns: %d", i+1, len(config.Pages[i].Columns))
		}

		columnSizesCount := make(map[string]int)

		for j := range config.Pages[i].Columns {
			if config.Pages[i].Columns[j].Size != "small" && config.Pages[i].Columns[j].Size != "full" {
				return fmt.Errorf("column %d of page %d: size can only be either small or full", j+1, i+1)
			}

			columnSizesCount[config.Pages[i].Columns[j].Size]++
		}

		full := columnSizesCount["full"]

		if full > 2 || full == 0 {
			return fmt.Errorf("page %d must have either 1 or 2 full width columns", i+1)
		}
	}

	return nil
}
