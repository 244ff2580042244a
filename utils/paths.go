package utils

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// HomeEnvVariable is the environment variable overriding the default home.
const HomeEnvVariable = "BASICCLEANING_HOME"

// RequiredDirs returns the directories that must exist inside home.
func RequiredDirs(home string) []string {
	requiredDirs := []string{}
	requiredSubdirs := []string{"db", "blobs", "artifacts"}
	for _, d := range requiredSubdirs {
		requiredDirs = append(requiredDirs, filepath.Join(home, d))
	}
	return requiredDirs
}

// ConfigPath returns the config file path for the given home.
func ConfigPath(home string) string {
	return filepath.Join(home, "config.json")
}

// DBPath returns the path of the named database inside home.
func DBPath(home string, name string) string {
	return filepath.Join(home, "db", name+".sqlite3")
}

// BlobsDir returns the directory holding artifact contents.
func BlobsDir(home string) string {
	return filepath.Join(home, "blobs")
}

// ArtifactsDir returns the directory where fetched artifacts are materialized.
func ArtifactsDir(home string) string {
	return filepath.Join(home, "artifacts")
}

// GetHome returns the home directory, honouring HomeEnvVariable.
func GetHome() (string, error) {
	if home := os.Getenv(HomeEnvVariable); home != "" {
		return home, nil
	}
	userHome, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(err, "resolving user home")
	}
	return filepath.Join(userHome, ".basiccleaning"), nil
}
