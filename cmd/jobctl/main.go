package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"orgjobs/internal/domains/job"
	"orgjobs/pkg/config"
	"orgjobs/pkg/infra/lmstfyq"
	redisinfra "orgjobs/pkg/infra/redis"
)

// jobctl 生产者侧命令行工具：构造 Job 信封并发布到通道
// 站在 HTTP 前端（外部协作者）的位置上，用于联调与演示

var (
	configPath string

	// 安全上下文（flag 缺省值回落到环境变量）
	accessToken string
	apiVersion  string
	orgID       string
	userID      string
	namespace   string
	instanceURL string

	// data 作业参数
	operation string
	count     int

	// quote 作业参数
	whereClause string
)

// publisher 发布能力（redis 通道 / lmstfy 队列共用）
type publisher interface {
	Publish(ctx context.Context, data []byte) error
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "jobctl",
		Short: "Publish job envelopes to the org job channel",
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "./config/worker.yaml", "配置文件路径")
	rootCmd.PersistentFlags().StringVar(&accessToken, "access-token", os.Getenv("ORGJOBS_ACCESS_TOKEN"), "记录库访问令牌")
	rootCmd.PersistentFlags().StringVar(&apiVersion, "api-version", getenvDefault("ORGJOBS_API_VERSION", "62.0"), "记录库 API 版本")
	rootCmd.PersistentFlags().StringVar(&orgID, "org-id", os.Getenv("ORGJOBS_ORG_ID"), "组织 ID")
	rootCmd.PersistentFlags().StringVar(&userID, "user-id", os.Getenv("ORGJOBS_USER_ID"), "操作用户 ID")
	rootCmd.PersistentFlags().StringVar(&namespace, "namespace", os.Getenv("ORGJOBS_NAMESPACE"), "命名空间（可选）")
	rootCmd.PersistentFlags().StringVar(&instanceURL, "instance-url", os.Getenv("ORGJOBS_INSTANCE_URL"), "记录库基础 URL")

	dataCmd := &cobra.Command{
		Use:   "data",
		Short: "Publish a bulk data job",
		RunE: func(cmd *cobra.Command, args []string) error {
			env := newEnvelope(job.TypeData)
			env.Operation = operation
			env.Count = count
			return publish(env)
		},
	}
	dataCmd.Flags().StringVar(&operation, "operation", "create", "操作类型（create|delete）")
	dataCmd.Flags().IntVar(&count, "count", 0, "生成行数（create，缺省用 worker 配置默认值）")

	quoteCmd := &cobra.Command{
		Use:   "quote",
		Short: "Publish a transactional quote job",
		RunE: func(cmd *cobra.Command, args []string) error {
			env := newEnvelope(job.TypeQuote)
			env.SoqlWhereClause = whereClause
			return publish(env)
		},
	}
	quoteCmd.Flags().StringVar(&whereClause, "where", "", "父记录过滤条件（SOQL WHERE 片段）")

	rootCmd.AddCommand(dataCmd, quoteCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newEnvelope 构造 Job 信封（jobId 仅用于日志关联，不做去重）
func newEnvelope(jobType job.Type) *job.Envelope {
	return &job.Envelope{
		JobID:   uuid.New().String(),
		JobType: string(jobType),
		SecurityContext: &job.SecurityContext{
			AccessToken: accessToken,
			APIVersion:  apiVersion,
			OrgID:       orgID,
			UserID:      userID,
			Namespace:   namespace,
			InstanceURL: instanceURL,
		},
	}
}

// publish 发布信封到配置的通道后端
func publish(env *job.Envelope) error {
	if err := env.SecurityContext.Validate(); err != nil {
		return fmt.Errorf("refusing to publish: %w", err)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	var pub publisher
	switch cfg.Channel.Backend {
	case "redis":
		pub, err = redisinfra.NewPublisher(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Channel.Name)
	case "lmstfy":
		pub, err = lmstfyq.NewClient(
			cfg.Lmstfy.Host, cfg.Lmstfy.Port, cfg.Lmstfy.Namespace, cfg.Lmstfy.Token,
			cfg.Channel.Name, cfg.Lmstfy.Timeout, cfg.Lmstfy.TTR)
	default:
		return fmt.Errorf("unknown channel backend: %s", cfg.Channel.Backend)
	}
	if err != nil {
		return err
	}

	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal envelope failed: %w", err)
	}

	if err := pub.Publish(context.Background(), data); err != nil {
		return err
	}

	fmt.Printf("Published %s job: %s\n", env.JobType, env.JobID)
	return nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
