package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/tigerroll/surfbatch/pkg/batch/support/util/exception"
	"github.com/tigerroll/surfbatch/pkg/batch/support/util/logger"
)

const moduleName = "config"

// Load builds the configuration: defaults, then the embedded YAML, then each file in
// files, then environment variables. A .env file at envFilePath (or ./.env when empty)
// is loaded first when present.
//
// YAML values may reference environment variables as ${VAR}. Environment overrides are
// named after the yaml path, e.g. SURFBATCH_SYSTEM_LOGGING_LEVEL or
// SURFBATCH_DATASOURCES_METADATA_HOST.
func Load(envFilePath string, embedded EmbeddedConfig, files ...string) (*Config, error) {
	if envFilePath != "" {
		if err := godotenv.Load(envFilePath); err != nil {
			logger.Warnf(".env file (%s) not found or could not be loaded: %v", envFilePath, err)
		}
	} else if err := godotenv.Load(); err != nil {
		logger.Debugf(".env file not found or could not be loaded: %v", err)
	}

	cfg := NewConfig()
	if len(embedded) > 0 {
		if err := decodeYAML(embedded, cfg); err != nil {
			return nil, exception.NewBatchError(moduleName, "failed to unmarshal embedded config", err, false, false)
		}
	}
	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, exception.NewBatchError(moduleName, fmt.Sprintf("failed to read config file %s", path), err, false, false)
		}
		if err := decodeYAML(data, cfg); err != nil {
			return nil, exception.NewBatchError(moduleName, fmt.Sprintf("failed to unmarshal config file %s", path), err, false, false)
		}
	}

	if err := loadStructFromEnv(reflect.ValueOf(cfg).Elem(), ""); err != nil {
		return nil, exception.NewBatchError(moduleName, "failed to load config from environment variables", err, false, false)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// decodeYAML expands ${VAR} references and decodes data over cfg. Keys absent from
// data keep their current values.
func decodeYAML(data []byte, cfg *Config) error {
	return yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), cfg)
}

// Validate rejects settings no component can run with.
func (c *Config) Validate() error {
	s := c.Surfbatch
	if s.Batch.ChunkSize <= 0 {
		return exception.NewBatchErrorf(moduleName, "surfbatch.batch.chunk_size must be positive, got %d", s.Batch.ChunkSize)
	}
	switch s.Batch.FailurePolicy {
	case "ABORT_STEP", "SKIP_CHUNK":
	default:
		return exception.NewBatchErrorf(moduleName, "unknown surfbatch.batch.failure_policy %q", s.Batch.FailurePolicy)
	}
	switch s.Repository.Type {
	case "inmemory":
	case "sql":
		if _, ok := s.Datasources[s.Repository.DatasourceRef]; !ok {
			return exception.NewBatchErrorf(moduleName, "repository datasource %q is not configured under surfbatch.datasources", s.Repository.DatasourceRef)
		}
	default:
		return exception.NewBatchErrorf(moduleName, "unknown surfbatch.repository.type %q", s.Repository.Type)
	}
	if _, err := time.LoadLocation(s.System.Timezone); err != nil {
		return exception.NewBatchError(moduleName, fmt.Sprintf("invalid surfbatch.system.timezone %q", s.System.Timezone), err, false, false)
	}
	return nil
}

// Location returns the configured timezone, or UTC when it cannot be loaded.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Surfbatch.System.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// loadStructFromEnv recursively loads configuration values into a struct from environment variables.
// It uses the "yaml" tag to determine the environment variable name.
func loadStructFromEnv(val reflect.Value, prefix string) error {
	typ := val.Type()
	for i := 0; i < typ.NumField(); i++ {
		field := val.Field(i)
		fieldType := typ.Field(i)
		yamlTag := strings.Split(fieldType.Tag.Get("yaml"), ",")[0]
		if yamlTag == "" || yamlTag == "-" {
			continue
		}
		envVarName := strings.ToUpper(prefix + yamlTag)

		switch {
		case field.Kind() == reflect.Struct:
			if err := loadStructFromEnv(field, envVarName+"_"); err != nil {
				return err
			}
			continue
		case field.Kind() == reflect.Map:
			if field.Type().Key().Kind() == reflect.String && field.Type().Elem().Kind() == reflect.Struct {
				if err := loadMapOfStructsFromEnv(field, envVarName+"_"); err != nil {
					return err
				}
			}
			continue
		}

		envValue, exists := os.LookupEnv(envVarName)
		if !exists {
			continue
		}
		if err := setField(field, envValue); err != nil {
			return fmt.Errorf("failed to set field '%s' from env var '%s': %w", fieldType.Name, envVarName, err)
		}
	}
	return nil
}

// loadMapOfStructsFromEnv loads fields of type map[string]struct{} from environment variables.
// For a prefix SURFBATCH_DATASOURCES_, the variable SURFBATCH_DATASOURCES_METADATA_HOST sets
// the Host field of the entry "metadata", creating the entry when it is missing.
func loadMapOfStructsFromEnv(mapField reflect.Value, prefix string) error {
	if mapField.IsNil() {
		mapField.Set(reflect.MakeMap(mapField.Type()))
	}
	elemType := mapField.Type().Elem()

	for _, env := range os.Environ() {
		if !strings.HasPrefix(env, prefix) {
			continue
		}
		parts := strings.SplitN(strings.TrimPrefix(env, prefix), "=", 2)
		if len(parts) != 2 {
			continue
		}
		keyAndField := strings.SplitN(parts[0], "_", 2)
		if len(keyAndField) < 2 {
			continue
		}
		mapKey := strings.ToLower(keyAndField[0])

		structVal := reflect.New(elemType).Elem()
		if existing := mapField.MapIndex(reflect.ValueOf(mapKey)); existing.IsValid() {
			structVal.Set(existing)
		}
		if err := setStructFieldFromEnv(structVal, keyAndField[1], parts[1]); err != nil {
			return err
		}
		mapField.SetMapIndex(reflect.ValueOf(mapKey), structVal)
	}
	return nil
}

// setStructFieldFromEnv sets the field of structVal whose yaml tag equals fieldName,
// ignoring case. Unknown names are ignored.
func setStructFieldFromEnv(structVal reflect.Value, fieldName string, value string) error {
	typ := structVal.Type()
	for i := 0; i < typ.NumField(); i++ {
		yamlTag := strings.Split(typ.Field(i).Tag.Get("yaml"), ",")[0]
		if yamlTag == "" || yamlTag == "-" {
			continue
		}
		if strings.EqualFold(yamlTag, fieldName) {
			return setField(structVal.Field(i), value)
		}
	}
	return nil
}

// setField sets the value of field from its string form. Slices of strings are
// comma separated.
func setField(field reflect.Value, value string) error {
	if !field.CanSet() {
		return nil
	}
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		intValue, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return err
		}
		field.SetInt(intValue)
	case reflect.Float64, reflect.Float32:
		floatValue, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		field.SetFloat(floatValue)
	case reflect.Bool:
		boolValue, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(boolValue)
	case reflect.Slice:
		if field.Type().Elem().Kind() != reflect.String {
			return nil
		}
		items := make([]string, 0)
		for _, item := range strings.Split(value, ",") {
			if item = strings.TrimSpace(item); item != "" {
				items = append(items, item)
			}
		}
		field.Set(reflect.ValueOf(items))
	}
	return nil
}
