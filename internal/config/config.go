package config

import (
	"os"
	"strings"

	"github.com/spf13/viper"
)

// readSecret reads a Docker secret from a file path specified by an env var
// with _FILE suffix. If FOO is already set directly, the file is skipped.
// If FOO_FILE is set, reads the file content and sets FOO.
func readSecret(envKey string) {
	if os.Getenv(envKey) != "" {
		return
	}
	fileKey := envKey + "_FILE"
	filePath := os.Getenv(fileKey)
	if filePath == "" {
		return
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		return
	}
	val := strings.TrimSpace(string(data))
	os.Setenv(envKey, val)
}

type Config struct {
	Server    ServerConfig
	Redis     RedisConfig
	Database  DatabaseConfig
	RateLimit RateLimitConfig
	Gemini    GeminiConfig
	Pexels    PexelsConfig
	Firecrawl FirecrawlConfig
	R2        R2Config
	Media     MediaConfig
	Assets    AssetsConfig
}

type ServerConfig struct {
	Port     string
	Env      string
	LogLevel string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type DatabaseConfig struct {
	Path string
}

type RateLimitConfig struct {
	GeneratePerHour int
}

type GeminiConfig struct {
	APIKey    string
	BaseURL   string
	Model     string
	TTSModel  string
	VoiceName string
}

type PexelsConfig struct {
	APIKey         string
	PhotosBaseURL  string
	VideosBaseURL  string
	CandidateCount int
	AIFiltering    bool
}

type FirecrawlConfig struct {
	APIKey           string
	BaseURL          string
	MinContentLength int
}

type R2Config struct {
	Enabled         bool
	AccountID       string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	PublicURL       string
}

type MediaConfig struct {
	FrameWidth         int
	FrameHeight        int
	FrameRate          int
	TransitionDuration float64
	TextSceneDuration  float64
	ScrollSpeed        float64
	BackgroundScore    string
	FFmpegBin          string
	FFprobeBin         string
}

type AssetsConfig struct {
	AudioDir  string
	ImageDir  string
	VideoDir  string
	TextDir   string
	OutputDir string
}

func Load() (*Config, error) {
	// Read Docker Swarm secrets from _FILE env vars before Viper binds
	readSecret("REDIS_PASSWORD")
	readSecret("GEMINI_API_KEY")
	readSecret("PEXELS_API_KEY")
	readSecret("FIRECRAWL_API_KEY")
	readSecret("R2_ACCOUNT_ID")
	readSecret("R2_ACCESS_KEY_ID")
	readSecret("R2_SECRET_ACCESS_KEY")

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	// Environment variables
	viper.AutomaticEnv()

	// Bind environment variables with underscores to nested config keys
	_ = viper.BindEnv("server.port", "SERVER_PORT")
	_ = viper.BindEnv("server.env", "SERVER_ENV")
	_ = viper.BindEnv("server.log_level", "LOG_LEVEL")
	_ = viper.BindEnv("redis.addr", "REDIS_ADDR")
	_ = viper.BindEnv("redis.password", "REDIS_PASSWORD")
	_ = viper.BindEnv("redis.db", "REDIS_DB")
	_ = viper.BindEnv("database.path", "DATABASE_PATH")
	_ = viper.BindEnv("ratelimit.generate_per_hour", "GENERATE_PER_HOUR")
	_ = viper.BindEnv("gemini.api_key", "GEMINI_API_KEY")
	_ = viper.BindEnv("gemini.base_url", "GEMINI_BASE_URL")
	_ = viper.BindEnv("gemini.model", "GEMINI_MODEL")
	_ = viper.BindEnv("gemini.tts_model", "GEMINI_TTS_MODEL")
	_ = viper.BindEnv("gemini.voice_name", "GEMINI_VOICE_NAME")
	_ = viper.BindEnv("pexels.api_key", "PEXELS_API_KEY")
	_ = viper.BindEnv("pexels.candidate_count", "PEXELS_CANDIDATE_COUNT")
	_ = viper.BindEnv("pexels.ai_filtering", "PEXELS_AI_FILTERING")
	_ = viper.BindEnv("firecrawl.api_key", "FIRECRAWL_API_KEY")
	_ = viper.BindEnv("firecrawl.base_url", "FIRECRAWL_BASE_URL")
	_ = viper.BindEnv("r2.enabled", "R2_ENABLED")
	_ = viper.BindEnv("r2.account_id", "R2_ACCOUNT_ID")
	_ = viper.BindEnv("r2.access_key_id", "R2_ACCESS_KEY_ID")
	_ = viper.BindEnv("r2.secret_access_key", "R2_SECRET_ACCESS_KEY")
	_ = viper.BindEnv("r2.bucket_name", "R2_BUCKET_NAME")
	_ = viper.BindEnv("r2.public_url", "R2_PUBLIC_URL")
	_ = viper.BindEnv("media.background_score", "BACKGROUND_SCORE_PATH")
	_ = viper.BindEnv("media.ffmpeg_bin", "FFMPEG_BIN")
	_ = viper.BindEnv("media.ffprobe_bin", "FFPROBE_BIN")

	// Defaults
	viper.SetDefault("server.port", "8000")
	viper.SetDefault("server.env", "development")
	viper.SetDefault("server.log_level", "info")
	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("database.path", "reelcraft.db")
	viper.SetDefault("ratelimit.generate_per_hour", 10)

	// Gemini defaults
	viper.SetDefault("gemini.base_url", "https://generativelanguage.googleapis.com/v1beta")
	viper.SetDefault("gemini.model", "gemini-2.5-flash")
	viper.SetDefault("gemini.tts_model", "gemini-2.5-flash-preview-tts")
	viper.SetDefault("gemini.voice_name", "Kore")

	// Pexels defaults
	viper.SetDefault("pexels.photos_base_url", "https://api.pexels.com/v1")
	viper.SetDefault("pexels.videos_base_url", "https://api.pexels.com/videos")
	viper.SetDefault("pexels.candidate_count", 5)
	viper.SetDefault("pexels.ai_filtering", true)

	// Firecrawl defaults
	viper.SetDefault("firecrawl.base_url", "https://api.firecrawl.dev/v1")
	viper.SetDefault("firecrawl.min_content_length", 200)

	// Media defaults: 720x1280 portrait at 25fps, half-second transitions
	viper.SetDefault("media.frame_width", 720)
	viper.SetDefault("media.frame_height", 1280)
	viper.SetDefault("media.frame_rate", 25)
	viper.SetDefault("media.transition_duration", 0.5)
	viper.SetDefault("media.text_scene_duration", 4.0)
	viper.SetDefault("media.scroll_speed", 0.008)
	viper.SetDefault("media.ffmpeg_bin", "ffmpeg")
	viper.SetDefault("media.ffprobe_bin", "ffprobe")

	// Asset directory defaults
	viper.SetDefault("assets.audio_dir", "assets/temp/audio")
	viper.SetDefault("assets.image_dir", "assets/temp/images")
	viper.SetDefault("assets.video_dir", "assets/temp/videos")
	viper.SetDefault("assets.text_dir", "assets/temp/text")
	viper.SetDefault("assets.output_dir", "assets/outputs")

	// Try to read config file (optional)
	_ = viper.ReadInConfig()

	cfg := &Config{
		Server: ServerConfig{
			Port:     viper.GetString("server.port"),
			Env:      viper.GetString("server.env"),
			LogLevel: viper.GetString("server.log_level"),
		},
		Redis: RedisConfig{
			Addr:     viper.GetString("redis.addr"),
			Password: viper.GetString("redis.password"),
			DB:       viper.GetInt("redis.db"),
		},
		Database: DatabaseConfig{
			Path: viper.GetString("database.path"),
		},
		RateLimit: RateLimitConfig{
			GeneratePerHour: viper.GetInt("ratelimit.generate_per_hour"),
		},
		Gemini: GeminiConfig{
			APIKey:    viper.GetString("gemini.api_key"),
			BaseURL:   viper.GetString("gemini.base_url"),
			Model:     viper.GetString("gemini.model"),
			TTSModel:  viper.GetString("gemini.tts_model"),
			VoiceName: viper.GetString("gemini.voice_name"),
		},
		Pexels: PexelsConfig{
			APIKey:         viper.GetString("pexels.api_key"),
			PhotosBaseURL:  viper.GetString("pexels.photos_base_url"),
			VideosBaseURL:  viper.GetString("pexels.videos_base_url"),
			CandidateCount: viper.GetInt("pexels.candidate_count"),
			AIFiltering:    viper.GetBool("pexels.ai_filtering"),
		},
		Firecrawl: FirecrawlConfig{
			APIKey:           viper.GetString("firecrawl.api_key"),
			BaseURL:          viper.GetString("firecrawl.base_url"),
			MinContentLength: viper.GetInt("firecrawl.min_content_length"),
		},
		R2: R2Config{
			Enabled:         viper.GetBool("r2.enabled"),
			AccountID:       viper.GetString("r2.account_id"),
			AccessKeyID:     viper.GetString("r2.access_key_id"),
			SecretAccessKey: viper.GetString("r2.secret_access_key"),
			BucketName:      viper.GetString("r2.bucket_name"),
			PublicURL:       viper.GetString("r2.public_url"),
		},
		Media: MediaConfig{
			FrameWidth:         viper.GetInt("media.frame_width"),
			FrameHeight:        viper.GetInt("media.frame_height"),
			FrameRate:          viper.GetInt("media.frame_rate"),
			TransitionDuration: viper.GetFloat64("media.transition_duration"),
			TextSceneDuration:  viper.GetFloat64("media.text_scene_duration"),
			ScrollSpeed:        viper.GetFloat64("media.scroll_speed"),
			BackgroundScore:    viper.GetString("media.background_score"),
			FFmpegBin:          viper.GetString("media.ffmpeg_bin"),
			FFprobeBin:         viper.GetString("media.ffprobe_bin"),
		},
		Assets: AssetsConfig{
			AudioDir:  viper.GetString("assets.audio_dir"),
			ImageDir:  viper.GetString("assets.image_dir"),
			VideoDir:  viper.GetString("assets.video_dir"),
			TextDir:   viper.GetString("assets.text_dir"),
			OutputDir: viper.GetString("assets.output_dir"),
		},
	}

	return cfg, nil
}
