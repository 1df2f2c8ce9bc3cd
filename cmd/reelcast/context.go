package main

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"reelcast/internal/apiclient"
	"reelcast/internal/config"
)

// commandContext carries the persistent flag values and lazily loads the
// config once per invocation.
type commandContext struct {
	apiAddr    string
	configPath string
	asJSON     bool

	loadConfig func() (*config.Config, error)
}

func newCommandContext() *commandContext {
	c := &commandContext{}
	c.loadConfig = sync.OnceValues(func() (*config.Config, error) {
		cfg, _, _, err := config.Load(strings.TrimSpace(c.configPath))
		return cfg, err
	})
	return c
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	return c.loadConfig()
}

func (c *commandContext) jsonOutput() bool {
	return c.asJSON
}

// apiBind prefers --api over paths.api_bind.
func (c *commandContext) apiBind() string {
	if addr := strings.TrimSpace(c.apiAddr); addr != "" {
		return addr
	}
	if cfg, err := c.ensureConfig(); err == nil {
		return cfg.Paths.APIBind
	}
	return ""
}

// withClient runs fn against the daemon API and rewrites connection
// failures into a hint to start the daemon.
func (c *commandContext) withClient(fn func(*apiclient.Client) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	bind := c.apiBind()
	client, err := apiclient.New(bind, cfg.Paths.APIToken)
	switch {
	case err != nil:
		return err
	case client == nil:
		return fmt.Errorf("paths.api_bind is empty; the daemon API is disabled")
	}
	err = fn(client)
	if apiclient.IsUnavailable(err) {
		return fmt.Errorf("connect to daemon at %s: start it with `reelcast daemon`", bind)
	}
	return err
}

// shouldSkipConfig reports whether cmd or an ancestor opts out of loading
// the config before running.
func shouldSkipConfig(cmd *cobra.Command) bool {
	for ; cmd != nil; cmd = cmd.Parent() {
		if cmd.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func parsePositiveID(arg, label string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(arg), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s id %q", label, arg)
	}
	return id, nil
}

func parsePositiveIDs(args []string, label string) ([]int64, error) {
	ids := make([]int64, 0, len(args))
	for _, arg := range args {
		id, err := parsePositiveID(arg, label)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
