package cli

import (
	"fmt"
	"maps"
	"os"
	"slices"
	"strings"
)

const (
	// AppServerSubcommand starts the JSON-RPC server on stdio.
	AppServerSubcommand = "app-server"

	// OriginatorEnv tags requests made by this SDK in codex telemetry.
	OriginatorEnv = "CODEX_INTERNAL_ORIGINATOR_OVERRIDE"

	// Originator is the default value of OriginatorEnv.
	Originator = "codex_sdk_go"
)

// Command represents the process to execute.
type Command struct {
	// Path is the codex binary.
	Path string

	// Args are the command line arguments.
	Args []string

	// Env are the environment variables.
	Env []string

	// Dir is the working directory.
	Dir string
}

// BuildArgs constructs the arguments that start the app-server. Process-wide
// config overrides are passed as root-level `-c key=value` flags in key
// order; per-thread settings travel in thread/start instead.
func BuildArgs(overrides map[string]string) []string {
	args := make([]string, 0, 1+2*len(overrides))

	for _, key := range slices.Sorted(maps.Keys(overrides)) {
		args = append(args, "-c", key+"="+overrides[key])
	}

	return append(args, AppServerSubcommand)
}

// BuildEnvironment returns the host environment with overrides applied in
// key order. Later entries win when exec.Cmd deduplicates the environment.
func BuildEnvironment(overrides map[string]string) []string {
	env := os.Environ()

	if _, ok := overrides[OriginatorEnv]; !ok && os.Getenv(OriginatorEnv) == "" {
		env = append(env, OriginatorEnv+"="+Originator)
	}

	for _, key := range slices.Sorted(maps.Keys(overrides)) {
		env = append(env, fmt.Sprintf("%s=%s", key, overrides[key]))
	}

	return env
}

// LookupEnv returns the last value of key in env.
func LookupEnv(env []string, key string) (string, bool) {
	prefix := key + "="

	for i := len(env) - 1; i >= 0; i-- {
		if value, ok := strings.CutPrefix(env[i], prefix); ok {
			return value, true
		}
	}

	return "", false
}

// BuildCommand assembles the full app-server invocation.
func BuildCommand(path, dir string, env, overrides map[string]string) *Command {
	return &Command{
		Path: path,
		Args: BuildArgs(overrides),
		Env:  BuildEnvironment(env),
		Dir:  dir,
	}
}
