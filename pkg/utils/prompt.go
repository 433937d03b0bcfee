package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/AlecAivazis/survey/v2"

	"github.com/picogrid/maildelivery/pkg/simulation"
)

// EnvPrefix prefixes the environment variables that answer prompts.
const EnvPrefix = "MAILSIM_"

// SkipPrompts reports whether MAILSIM_SKIP_PROMPTS asks for a non-interactive run.
func SkipPrompts() bool {
	v, _ := strconv.ParseBool(os.Getenv(EnvPrefix + "SKIP_PROMPTS"))
	return v
}

// PromptForParameters prompts the user for simulation parameters. Parameters
// already present in preset are not asked for.
func PromptForParameters(params []simulation.Parameter, preset map[string]interface{}) (map[string]interface{}, error) {
	result := make(map[string]interface{}, len(params))
	for k, v := range preset {
		result[k] = v
	}

	for _, param := range params {
		if _, ok := result[param.Name]; ok {
			continue
		}
		value, err := promptForParameter(param)
		if err != nil {
			return nil, fmt.Errorf("failed to get %s: %w", param.Name, err)
		}
		result[param.Name] = value
	}

	return result, nil
}

func envKey(param simulation.Parameter) string {
	return EnvPrefix + strings.ToUpper(param.Name)
}

func promptForParameter(param simulation.Parameter) (interface{}, error) {
	if SkipPrompts() {
		return nonInteractiveValue(param)
	}

	// An environment value becomes the suggested default
	if envValue := os.Getenv(envKey(param)); envValue != "" {
		if parsed, err := parseEnvValue(envValue, param); err == nil {
			param.Default = parsed
		}
	}

	switch param.Type {
	case simulation.TypeInteger:
		return promptInteger(param)
	case simulation.TypeFloat:
		return promptFloat(param)
	case simulation.TypeString:
		return promptString(param)
	case simulation.TypeBoolean:
		return promptBoolean(param)
	case simulation.TypeScenario:
		return promptScenario(param)
	default:
		return nil, fmt.Errorf("unsupported parameter type: %s", param.Type)
	}
}

// nonInteractiveValue answers a parameter from the environment or its default.
func nonInteractiveValue(param simulation.Parameter) (interface{}, error) {
	if envValue := os.Getenv(envKey(param)); envValue != "" {
		return parseEnvValue(envValue, param)
	}
	if param.Default != nil {
		if param.Type == simulation.TypeScenario {
			return ResolveScenario(fmt.Sprintf("%v", param.Default))
		}
		return normalize(param.Default, param)
	}
	if param.Required {
		return nil, fmt.Errorf("required parameter %s not provided and no default available", param.Name)
	}
	return nil, nil
}

// normalize converts YAML decoded defaults to the parameter's Go type.
func normalize(v interface{}, param simulation.Parameter) (interface{}, error) {
	switch param.Type {
	case simulation.TypeInteger:
		return toInt(v), nil
	case simulation.TypeFloat:
		return toFloat64(v), nil
	case simulation.TypeBoolean:
		if b, ok := v.(bool); ok {
			return b, nil
		}
		return strconv.ParseBool(fmt.Sprintf("%v", v))
	default:
		return fmt.Sprintf("%v", v), nil
	}
}

func parseEnvValue(value string, param simulation.Parameter) (interface{}, error) {
	switch param.Type {
	case simulation.TypeInteger:
		return strconv.Atoi(value)
	case simulation.TypeFloat:
		return strconv.ParseFloat(value, 64)
	case simulation.TypeString:
		return value, nil
	case simulation.TypeBoolean:
		return strconv.ParseBool(value)
	case simulation.TypeScenario:
		return ResolveScenario(value)
	default:
		return nil, fmt.Errorf("unsupported parameter type: %s", param.Type)
	}
}

// ResolveScenario maps a scenario reference to a file. A reference is a path
// to an existing file or the base name of a file in the scenarios directory.
func ResolveScenario(ref string) (string, error) {
	if ref == "" {
		return "", fmt.Errorf("empty scenario reference")
	}
	if _, err := os.Stat(ref); err == nil {
		return ref, nil
	}
	dir, err := ScenarioDir()
	if err != nil {
		return "", err
	}
	base := strings.TrimSuffix(strings.TrimSuffix(ref, ".yaml"), ".yml")
	for _, candidate := range []string{base + ".yaml", base + ".yml"} {
		p := filepath.Join(dir, candidate)
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", fmt.Errorf("scenario %q not found", ref)
}

func promptInteger(param simulation.Parameter) (int, error) {
	defaultStr := ""
	if param.Default != nil {
		defaultStr = strconv.Itoa(toInt(param.Default))
	}

	prompt := &survey.Input{
		Message: param.Description,
		Default: defaultStr,
	}

	var result string
	if err := survey.AskOne(prompt, &result, survey.WithValidator(survey.Required)); err != nil {
		return 0, err
	}

	value, err := strconv.Atoi(result)
	if err != nil {
		return 0, fmt.Errorf("invalid integer: %w", err)
	}

	if param.Min != nil {
		if minRange := toInt(param.Min); value < minRange {
			return 0, fmt.Errorf("value must be at least %d", minRange)
		}
	}
	if param.Max != nil {
		if maxRange := toInt(param.Max); value > maxRange {
			return 0, fmt.Errorf("value must be at most %d", maxRange)
		}
	}

	return value, nil
}

func promptFloat(param simulation.Parameter) (float64, error) {
	defaultStr := ""
	if param.Default != nil {
		defaultStr = fmt.Sprintf("%v", param.Default)
	}

	prompt := &survey.Input{
		Message: param.Description,
		Default: defaultStr,
	}

	var result string
	if err := survey.AskOne(prompt, &result, survey.WithValidator(survey.Required)); err != nil {
		return 0, err
	}

	value, err := strconv.ParseFloat(result, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number: %w", err)
	}

	if param.Min != nil {
		if minRange := toFloat64(param.Min); value < minRange {
			return 0, fmt.Errorf("value must be at least %g", minRange)
		}
	}
	if param.Max != nil {
		if maxRange := toFloat64(param.Max); value > maxRange {
			return 0, fmt.Errorf("value must be at most %g", maxRange)
		}
	}

	return value, nil
}

func promptString(param simulation.Parameter) (string, error) {
	defaultStr := ""
	if param.Default != nil {
		defaultStr = fmt.Sprintf("%v", param.Default)
	}

	if len(param.Options) > 0 {
		prompt := &survey.Select{
			Message: param.Description,
			Options: param.Options,
			Default: defaultStr,
		}

		var result string
		if err := survey.AskOne(prompt, &result); err != nil {
			return "", err
		}
		return result, nil
	}

	prompt := &survey.Input{
		Message: param.Description,
		Default: defaultStr,
	}

	var result string
	var validators []survey.Validator
	if param.Required {
		validators = append(validators, survey.Required)
	}

	if err := survey.AskOne(prompt, &result, survey.WithValidator(survey.ComposeValidators(validators...))); err != nil {
		return "", err
	}

	return result, nil
}

func promptBoolean(param simulation.Parameter) (bool, error) {
	defaultBool := false
	if param.Default != nil {
		switch v := param.Default.(type) {
		case bool:
			defaultBool = v
		case string:
			defaultBool = v == "true" || v == "yes" || v == "1"
		}
	}

	prompt := &survey.Confirm{
		Message: param.Description,
		Default: defaultBool,
	}

	var result bool
	if err := survey.AskOne(prompt, &result); err != nil {
		return false, err
	}

	return result, nil
}

// promptScenario offers the scenarios bundled with the project.
func promptScenario(param simulation.Parameter) (string, error) {
	dir, err := ScenarioDir()
	if err != nil {
		return "", err
	}
	scenarios, err := DiscoverScenarios(dir)
	if err != nil {
		return "", err
	}
	if len(scenarios) == 0 {
		return "", fmt.Errorf("no scenarios found in %s", dir)
	}

	options := make([]string, len(scenarios))
	paths := make(map[string]string, len(scenarios))
	descriptions := make(map[string]string, len(scenarios))
	defaultName, defaultRef := "", ""
	if param.Default != nil {
		defaultRef = scenarioStem(fmt.Sprintf("%v", param.Default))
	}
	for i, s := range scenarios {
		options[i] = s.Name
		paths[s.Name] = s.Path
		descriptions[s.Name] = fmt.Sprintf("%d robots, %d drones, %d steps", s.Robots, s.Drones, s.Steps)
		if defaultRef != "" && scenarioStem(s.Path) == defaultRef {
			defaultName = s.Name
		}
	}

	prompt := &survey.Select{
		Message: param.Description,
		Options: options,
		Description: func(value string, index int) string {
			return descriptions[value]
		},
	}
	if defaultName != "" {
		prompt.Default = defaultName
	}

	var selected string
	if err := survey.AskOne(prompt, &selected); err != nil {
		return "", err
	}
	return paths[selected], nil
}

func scenarioStem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func toInt(v interface{}) int {
	switch val := v.(type) {
	case int:
		return val
	case int64:
		return int(val)
	case float64:
		return int(val)
	case string:
		i, _ := strconv.Atoi(val)
		return i
	default:
		return 0
	}
}

func toFloat64(v interface{}) float64 {
	switch val := v.(type) {
	case float64:
		return val
	case int:
		return float64(val)
	case int64:
		return float64(val)
	case string:
		f, _ := strconv.ParseFloat(val, 64)
		return f
	default:
		return 0
	}
}
