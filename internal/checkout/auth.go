package checkout

import (
	"fmt"
	"os"

	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/go-git/go-git/v5/plumbing/transport/ssh"

	"git.home.luguber.info/inful/conveyor/internal/config"
)

// buildAuth returns a go-git AuthMethod for the given AuthConfig.
func buildAuth(authCfg *config.AuthConfig) (transport.AuthMethod, error) {
	if authCfg == nil {
		return nil, nil
	}
	switch authCfg.Type {
	case "token":
		if authCfg.Token == "" {
			return nil, fmt.Errorf("token auth requires a token")
		}
		// go-git treats tokens as basic auth with a fixed username.
		return &http.BasicAuth{Username: "git", Password: authCfg.Token}, nil
	case "basic":
		if authCfg.Username == "" {
			return nil, fmt.Errorf("basic auth requires a username")
		}
		return &http.BasicAuth{Username: authCfg.Username, Password: authCfg.Password}, nil
	case "ssh":
		keyPath := authCfg.KeyPath
		if keyPath == "" {
			return nil, fmt.Errorf("ssh auth requires key_path")
		}
		keyData, err := os.ReadFile(keyPath)
		if err != nil {
			return nil, fmt.Errorf("read ssh key: %w", err)
		}
		keys, err := ssh.NewPublicKeys("git", keyData, authCfg.Password)
		if err != nil {
			return nil, fmt.Errorf("parse ssh key: %w", err)
		}
		return keys, nil
	}
	return nil, fmt.Errorf("unknown auth type: %s", authCfg.Type)
}
