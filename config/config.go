package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	ProviderCOS = "cos"
	ProviderGCS = "gcs"

	QueueInline   = "inline"
	QueueRabbitMQ = "rabbitmq"
	QueuePubSub   = "pubsub"
)

type Config struct {
	ServerPort int
	JWTSecret  string
	// TmpDir holds local copies fetched from the bucket. Empty means os.TempDir.
	TmpDir string

	Log      LogConfig
	Storage  StorageConfig
	COS      COSConfig
	GCS      GCSConfig
	CDN      CDNConfig
	Queue    QueueConfig
	RabbitMQ RabbitMQConfig
	PubSub   PubSubConfig
}

type LogConfig struct {
	Level  string
	Format string
}

type StorageConfig struct {
	// Provider selects the object store: "cos" or "gcs".
	Provider string
	// DomainID is the wiki id the host prefixes container names with.
	DomainID string
	// Backend is the backend name used in mwstore:// paths.
	Backend string
}

type COSConfig struct {
	Region    string
	SecretID  string
	SecretKey string
	Bucket    string
	// Viewpoint is the public base URL. Defaults to the bucket endpoint.
	Viewpoint string
	// UseCDN enables CDN purge after delete.
	UseCDN bool
}

type GCSConfig struct {
	Bucket          string
	ProjectID       string
	CredentialsFile string
	Viewpoint       string
}

type CDNConfig struct {
	Region    string
	SecretID  string
	SecretKey string
	Endpoint  string
}

type QueueConfig struct {
	Provider string
	Channel  string
	Buffer   int
}

type RabbitMQConfig struct {
	URL             string
	QueueDurable    bool
	QueueAutoDelete bool
	PrefetchCount   int
}

type PubSubConfig struct {
	ProjectID          string
	CredentialsFile    string
	SubscriptionSuffix string
}

func LoadConfig() Config {
	if os.Getenv("ENV") == "dev" {
		godotenv.Load()
	}

	cos := COSConfig{
		Region:    getEnv("COS_REGION", ""),
		SecretID:  getEnv("COS_SECRET_ID", ""),
		SecretKey: getEnv("COS_SECRET_KEY", ""),
		Bucket:    getEnv("COS_BUCKET", ""),
		Viewpoint: strings.TrimRight(getEnv("COS_VIEWPOINT", ""), "/"),
		UseCDN:    getEnvBool("COS_USE_CDN", false),
	}

	// CDN purge authenticates with its own credentials, falling back to the COS pair.
	cdn := CDNConfig{
		Region:    getEnv("CDN_REGION", cos.Region),
		SecretID:  getEnv("CDN_SECRET_ID", cos.SecretID),
		SecretKey: getEnv("CDN_SECRET_KEY", cos.SecretKey),
		Endpoint:  getEnv("CDN_ENDPOINT", "cdn.tencentcloudapi.com"),
	}

	return Config{
		ServerPort: getEnvInt("SERVER_PORT", 8080),
		JWTSecret:  getEnv("JWT_SECRET", ""),
		TmpDir:     getEnv("TMP_DIR", ""),
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Storage: StorageConfig{
			Provider: strings.ToLower(getEnv("STORAGE_PROVIDER", ProviderCOS)),
			DomainID: getEnv("STORAGE_DOMAIN_ID", ""),
			Backend:  getEnv("STORAGE_BACKEND_NAME", "local-backend"),
		},
		COS: cos,
		GCS: GCSConfig{
			Bucket:          getEnv("GCS_BUCKET", ""),
			ProjectID:       getEnv("GCS_PROJECT_ID", ""),
			CredentialsFile: getEnv("GCS_CREDENTIALS_FILE", ""),
			Viewpoint:       strings.TrimRight(getEnv("GCS_VIEWPOINT", ""), "/"),
		},
		CDN: cdn,
		Queue: QueueConfig{
			Provider: strings.ToLower(getEnv("QUEUE_PROVIDER", QueueInline)),
			Channel:  getEnv("PURGE_CHANNEL", "cdn-purge"),
			Buffer:   getEnvInt("QUEUE_BUFFER", 64),
		},
		RabbitMQ: RabbitMQConfig{
			URL:             getEnv("RABBITMQ_URL", ""),
			QueueDurable:    getEnvBool("RABBITMQ_QUEUE_DURABLE", true),
			QueueAutoDelete: getEnvBool("RABBITMQ_QUEUE_AUTO_DELETE", false),
			PrefetchCount:   getEnvInt("RABBITMQ_PREFETCH", 10),
		},
		PubSub: PubSubConfig{
			ProjectID:          getEnv("PUBSUB_PROJECT_ID", ""),
			CredentialsFile:    getEnv("PUBSUB_CREDENTIALS_FILE", ""),
			SubscriptionSuffix: getEnv("PUBSUB_SUBSCRIPTION_SUFFIX", "-sub"),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if valueStr, exists := os.LookupEnv(key); exists {
		var value int
		fmt.Sscanf(valueStr, "%d", &value)
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if valueStr, exists := os.LookupEnv(key); exists {
		value, err := strconv.ParseBool(strings.TrimSpace(valueStr))
		if err != nil {
			return defaultValue
		}
		return value
	}
	return defaultValue
}
