package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bytedance/sonic"
	"github.com/spf13/cobra"

	"github.com/dmachibya/faithexercises-api/api"
	"github.com/dmachibya/faithexercises-api/config"
)

var tokenOpts struct {
	count  int
	prefix string
	start  int
	output string
	admin  bool
	ttl    time.Duration
}

var tokenCmd = &cobra.Command{
	Use:   "token [user-id]",
	Short: "Mint test mode tokens",
	Long: `token signs HS256 tokens with test_jwt_secret for use against a server
running with auth0_test_mode enabled.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !cfg.Auth0TestMode || cfg.TestJWTSecret == "" {
			return errors.New("token requires auth0_test_mode and test_jwt_secret")
		}
		if tokenOpts.count < 1 {
			return errors.New("count must be at least 1")
		}
		if tokenOpts.start < 1 {
			return errors.New("start index must be at least 1")
		}
		if len(args) > 0 && tokenOpts.count > 1 {
			return errors.New("explicit user ID cannot be provided when generating multiple tokens")
		}

		tokens, err := generateTokens(cfg, userIDs(tokenOpts.count, tokenOpts.prefix, tokenOpts.start, args))
		if err != nil {
			return fmt.Errorf("generate token: %w", err)
		}
		if tokenOpts.output != "" {
			if err := writeTokens(tokenOpts.output, tokens); err != nil {
				return fmt.Errorf("write tokens: %w", err)
			}
		}
		fmt.Fprint(cmd.OutOrStdout(), tokens[0])
		return nil
	},
}

func init() {
	tokenCmd.Flags().IntVar(&tokenOpts.count, "count", 1, "number of tokens to generate")
	tokenCmd.Flags().StringVar(&tokenOpts.prefix, "prefix", "test-user", "prefix for generated user IDs when count > 1")
	tokenCmd.Flags().IntVar(&tokenOpts.start, "start", 1, "starting index for generated user IDs when count > 1")
	tokenCmd.Flags().StringVar(&tokenOpts.output, "output", "", "file to write generated tokens as a JSON array")
	tokenCmd.Flags().BoolVar(&tokenOpts.admin, "admin", false, "grant the configured admin role")
	tokenCmd.Flags().DurationVar(&tokenOpts.ttl, "ttl", time.Hour, "token lifetime")
}

func userIDs(count int, prefix string, start int, args []string) []string {
	if len(args) > 0 {
		return []string{args[0]}
	}
	if count == 1 {
		return []string{prefix}
	}
	ids := make([]string, count)
	for i := range ids {
		ids[i] = fmt.Sprintf("%s-%d", prefix, start+i)
	}
	return ids
}

func generateTokens(cfg *config.Config, ids []string) ([]string, error) {
	var roles []string
	if tokenOpts.admin {
		roles = []string{cfg.AdminRole}
	}
	tokens := make([]string, len(ids))
	for i, id := range ids {
		tok, err := api.SignTestToken(cfg.TestJWTSecret, api.TestTokenRequest{
			UserID:    id,
			Audience:  cfg.Auth0Audience,
			RoleClaim: cfg.AdminRoleClaim,
			Roles:     roles,
			TTL:       tokenOpts.ttl,
		})
		if err != nil {
			return nil, err
		}
		tokens[i] = tok
	}
	return tokens, nil
}

func writeTokens(path string, tokens []string) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	data, err := sonic.Marshal(tokens)
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o600)
}
