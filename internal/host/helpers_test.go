package host_test

import "os"

func writeRaw(path string, text string) error {
	return os.WriteFile(path, []byte(text), 0o644)
}
