package config

import (
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config stores the application configuration.
type Config struct {
	// Encoder
	FFmpegPath       string   // explicit override; empty means search
	FFmpegSearchDirs []string // well-known install locations tried before $PATH
	FFprobePath      string
	AudioBitrate     string // e.g. "128k"
	AudioSampleRate  int

	// Files
	MediaDir         string // acquired artifacts live here
	PlaylistPath     string // the concat artifact the encoder reads
	SilencePath      string // fallback silence entry
	SilenceSeconds   int
	MinArtifactBytes int64

	// Ingest endpoint (Icecast)
	IcecastHost     string
	IcecastPort     int
	IcecastMount    string
	IcecastUser     string
	IcecastPassword string

	// Supervision and scheduling
	RegenInterval      time.Duration
	RestartBackoff     time.Duration
	RestartMinInterval time.Duration
	StopGrace          time.Duration
	PrefetchDepth      int
	PrefetchDelay      time.Duration

	// Audio source provider
	AudioSource   string // "netease" or "ytdlp"
	NeteaseAPIURL string
	NeteaseLevel  string
	YtDlpPath     string

	// Redis mirror of the content cache and event relay; empty host disables it.
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	// MinIO artifact archive; empty endpoint disables it.
	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioRegion    string
	MinioUseSSL    bool

	// MySQL request history; empty host disables it.
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	HTTPAddr string
	LogLevel string
	LogFile  string
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// getEnvInt gets an environment variable as int or returns a default value.
func getEnvInt(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

// getEnvDuration accepts Go duration syntax ("5s") or a bare number of seconds.
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	value, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(value, string(os.PathListSeparator)) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Load loads configuration from environment variables (via .env file) or defaults.
func Load() *Config {
	// godotenv.Load() never overrides variables that are already set.
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found or error loading .env, relying on existing environment variables and defaults.")
	}

	mediaDir := getEnv("MEDIA_DIR", filepath.Join("data", "media"))

	return &Config{
		FFmpegPath:       os.Getenv("FFMPEG_PATH"),
		FFmpegSearchDirs: getEnvList("FFMPEG_SEARCH_DIRS", []string{"/usr/local/bin", "/usr/bin", "/opt/homebrew/bin", "/opt/ffmpeg/bin"}),
		FFprobePath:      getEnv("FFPROBE_PATH", "ffprobe"),
		AudioBitrate:     getEnv("AUDIO_BITRATE", "128k"),
		AudioSampleRate:  getEnvInt("AUDIO_SAMPLE_RATE", 44100),

		MediaDir:         mediaDir,
		PlaylistPath:     getEnv("PLAYLIST_PATH", filepath.Join("data", "playlist.txt")),
		SilencePath:      getEnv("SILENCE_PATH", filepath.Join("data", "silence.mp3")),
		SilenceSeconds:   getEnvInt("SILENCE_SECONDS", 30),
		MinArtifactBytes: int64(getEnvInt("MIN_ARTIFACT_BYTES", 1024)),

		IcecastHost:     getEnv("ICECAST_HOST", "127.0.0.1"),
		IcecastPort:     getEnvInt("ICECAST_PORT", 8000),
		IcecastMount:    getEnv("ICECAST_MOUNT", "/live"),
		IcecastUser:     getEnv("ICECAST_USER", "source"),
		IcecastPassword: getEnv("ICECAST_PASSWORD", "hackme"),

		RegenInterval:      getEnvDuration("REGEN_INTERVAL", 5*time.Second),
		RestartBackoff:     getEnvDuration("RESTART_BACKOFF", 3*time.Second),
		RestartMinInterval: getEnvDuration("RESTART_MIN_INTERVAL", 10*time.Second),
		StopGrace:          getEnvDuration("STOP_GRACE", 5*time.Second),
		PrefetchDepth:      getEnvInt("PREFETCH_DEPTH", 3),
		PrefetchDelay:      getEnvDuration("PREFETCH_DELAY", 2*time.Second),

		AudioSource:   strings.ToLower(getEnv("AUDIO_SOURCE", "netease")),
		NeteaseAPIURL: getEnv("NETEASE_API_URL", "http://localhost:3000"),
		NeteaseLevel:  getEnv("NETEASE_LEVEL", "exhigh"),
		YtDlpPath:     getEnv("YTDLP_PATH", "yt-dlp"),

		RedisHost:     os.Getenv("REDIS_HOST"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		MinioEndpoint:  os.Getenv("MINIO_ENDPOINT"),
		MinioAccessKey: os.Getenv("MINIO_ACCESS_KEY"),
		MinioSecretKey: os.Getenv("MINIO_SECRET_KEY"),
		MinioBucket:    getEnv("MINIO_BUCKET", "livefm"),
		MinioRegion:    getEnv("MINIO_REGION", "us-east-1"),
		MinioUseSSL:    getEnvBool("MINIO_USE_SSL", false),

		DBHost:     os.Getenv("DB_HOST"),
		DBPort:     getEnv("DB_PORT", "3306"),
		DBUser:     getEnv("DB_USER", "root"),
		DBPassword: os.Getenv("DB_PASSWORD"), // no hardcoded default for the password
		DBName:     getEnv("DB_NAME", "livefm"),

		HTTPAddr: getEnv("HTTP_ADDR", ":8080"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		LogFile:  getEnv("LOG_FILE", ""),
	}
}
