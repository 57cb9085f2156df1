package env

import (
	"log"
	"path/filepath"
	"strings"

	z "github.com/Oudwins/zog"
	"github.com/Oudwins/zog/zenv"
)

const DefaultAPIURL = "http://localhost:8000"

type EnvStruct struct {
	HOME      string `zog:"HOME"`
	API_URL   string `zog:"BUILDWATCH_API_URL"`
	DATA_DIR  string `zog:"BUILDWATCH_HOME"`
	LOG_LEVEL string `zog:"BUILDWATCH_LOG_LEVEL"`
}

var env *EnvStruct

var EnvSchema = z.Struct(z.Shape{
	"HOME":      z.String(),
	"API_URL":   z.String().Trim().Default(DefaultAPIURL),
	"DATA_DIR":  z.String().Trim().Optional(),
	"LOG_LEVEL": z.String().Trim().Default("info"),
})

func Get() *EnvStruct {
	if env == nil {
		env = &EnvStruct{}
		errs := EnvSchema.Parse(zenv.NewDataProvider(), env)
		if errs != nil {
			log.Fatal("[Buildwatch] Failed to parse environment variables", errs)
		}

		env.API_URL = strings.TrimRight(env.API_URL, "/")
		if env.API_URL == "" {
			env.API_URL = DefaultAPIURL
		}
		if env.LOG_LEVEL == "" {
			env.LOG_LEVEL = "info"
		}
		if env.DATA_DIR == "" {
			env.DATA_DIR = filepath.Join(env.HOME, ".buildwatch")
		}
	}
	return env
}
