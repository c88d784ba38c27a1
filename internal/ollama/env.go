package ollama

import (
	"fmt"
	"os"
)

// OverrideEnv returns the inherited process environment with the bind and CORS
// overrides appended. Every child invocation (serve and each pull) gets the
// same pair so the CLI and the server agree on the endpoint. Appending after
// os.Environ() means the overrides win over any inherited values.
func OverrideEnv(host string, port int, origins string) []string {
	env := os.Environ()
	env = append(env,
		fmt.Sprintf("OLLAMA_HOST=%s:%d", host, port),
		fmt.Sprintf("OLLAMA_ORIGINS=%s", origins),
	)
	return env
}
