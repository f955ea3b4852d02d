package cli

import (
	"fmt"
	"log"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"training-quiz-service/internal/config"
	rediscache "training-quiz-service/internal/infra/redis"
)

// NewSweepCmd drops cached quiz content from Redis so the next session start
// reloads it from the source of truth.
func NewSweepCmd(configPath *string) *cobra.Command {
	var modules []string
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Purge cached quiz content from Redis",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if cfg.Redis.Addr == "" {
				return fmt.Errorf("redis addr not configured")
			}
			client := newRedisClient(cfg)
			defer client.Close()

			cache := rediscache.NewQuizRepository(client, nil, 0)
			removed, err := cache.Purge(cmd.Context(), modules...)
			if err != nil {
				return err
			}
			log.Printf("purged %d cached quiz entries", removed)
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&modules, "module", nil, "module id to purge (repeatable); all when omitted")
	return cmd
}

func newRedisClient(cfg config.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
}
