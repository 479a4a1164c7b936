package index

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/distribution/reference"
	"github.com/docker/cli/cli/config/configfile"
	"github.com/docker/cli/cli/config/types"
)

const (
	authDirPrefix  = "marketplace-docker-config"
	configFileName = "config.json"

	dockerHubDomain  = "docker.io"
	dockerHubAuthKey = "https://index.docker.io/v1/"
)

// RegistryAuth holds the credentials used to push index images. The docker
// config file is written on first use and shared by every later push.
type RegistryAuth struct {
	Registry string
	Username string
	Password string
	// Dir is where the config directory is created, the system temp dir when empty.
	Dir string

	once sync.Once
	path string
	err  error
}

func NewRegistryAuth(registry, username, password string) *RegistryAuth {
	return &RegistryAuth{
		Registry: registry,
		Username: username,
		Password: password,
	}
}

// ConfigPath returns the path of the docker config.json holding the
// credentials, writing it if needed. It is empty when there are no
// credentials.
func (a *RegistryAuth) ConfigPath() (string, error) {
	if a == nil || a.Username == "" {
		return "", nil
	}
	a.once.Do(func() {
		a.path, a.err = a.write()
	})
	return a.path, a.err
}

func (a *RegistryAuth) write() (string, error) {
	if a.Registry == "" {
		return "", fmt.Errorf("no registry set for user %s", a.Username)
	}
	dir, err := os.MkdirTemp(a.Dir, authDirPrefix)
	if err != nil {
		return "", err
	}

	key := a.Registry
	if key == dockerHubDomain {
		key = dockerHubAuthKey
	}
	cf := configfile.New(filepath.Join(dir, configFileName))
	cf.AuthConfigs[key] = types.AuthConfig{
		Username:      a.Username,
		Password:      a.Password,
		ServerAddress: key,
	}
	if err := cf.Save(); err != nil {
		return "", fmt.Errorf("error writing registry credentials: %w", err)
	}
	return cf.Filename, nil
}

// Cleanup removes the config directory, if one was written.
func (a *RegistryAuth) Cleanup() error {
	if a == nil || a.path == "" {
		return nil
	}
	return os.RemoveAll(filepath.Dir(a.path))
}

// RegistryHost returns the registry domain of an image reference.
func RegistryHost(ref string) (string, error) {
	named, err := reference.ParseNormalizedNamed(ref)
	if err != nil {
		return "", fmt.Errorf("invalid image reference %q: %w", ref, err)
	}
	return reference.Domain(named), nil
}
