package synth

import "os"

func readSample(path string) ([]byte, error) {
	return os.ReadFile(path)
}
