package config

const (
	defaultConfigPath           = "~/.config/newsreel/config.toml"
	defaultOutputDir            = "~/newsreel/output"
	defaultPresentationsDir     = "~/newsreel/presentations"
	defaultLogDir               = "~/.local/state/newsreel/logs"
	defaultStateDir             = "~/.local/share/newsreel"
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
	defaultLLMTimeoutSeconds    = 120
	defaultLanguage             = "ja"
	defaultGeminiModel          = "gemini-2.5-flash"
	defaultOpenRouterBaseURL    = "https://openrouter.ai/api/v1/chat/completions"
	defaultOpenRouterModel      = "google/gemini-2.5-flash"
	defaultOpenRouterReferer    = "https://github.com/newsreel/newsreel"
	defaultOpenRouterTitle      = "newsreel"
	defaultImageModel           = "gemini-2.5-flash-image"
	defaultAspectRatio          = "16:9"
	defaultImageMaxAttempts     = 3
	defaultImageRetryDelay      = 2
	defaultPromptInterval       = 1
	defaultLogoFolder           = "logo"
	defaultHoursAgo             = 24
	defaultFeedTimeoutSeconds   = 30
	defaultFeedUserAgent        = "newsreel/1.0"
	defaultPortfolioCSV         = "portfolio.csv"
	defaultNarrationInterval    = 2
	defaultNarrationAttempts    = 3
	defaultNarrationRetryDelay  = 10
	defaultNarrationRateLimit   = 45
	defaultTTSBinary            = "edge-tts"
	defaultTTSVoice             = "ja-JP-NanamiNeural"
	defaultTTSConcurrency       = 4
	defaultTTSTimeoutSeconds    = 120
	defaultFFprobeBinary        = "ffprobe"
	defaultNpxBinary            = "npx"
	defaultComposition          = "Video"
	defaultFPS                  = 30
	defaultRenderTimeoutSeconds = 1800
	defaultSlideTheme           = "default"
	defaultUploadTitlePrefix    = "AI・IT ニュース"
	defaultUploadCategoryID     = "28"
	defaultUploadPrivacy        = "public"
	defaultUploadDisclaimer     = "このコンテンツはAIが自動生成したものです。事実と異なる内容が含まれる可能性があります。"
	defaultNotifyRequestTimeout = 10
	ProviderGemini              = "gemini"
	ProviderOpenRouter          = "openrouter"
	geminiAPIKeyEnv             = "GEMINI_API_KEY"
	googleAPIKeyEnv             = "GOOGLE_API_KEY"
	openRouterAPIKeyEnv         = "OPENROUTER_API_KEY"
	finnhubAPIKeyEnv            = "FINNHUB_API_KEY"
	youtubeClientIDEnv          = "YOUTUBE_CLIENT_ID"
	youtubeClientSecretEnv      = "YOUTUBE_CLIENT_SECRET"
	youtubeRefreshTokenEnv      = "YOUTUBE_REFRESH_TOKEN"
	ntfyTopicEnv                = "NTFY_TOPIC"
	discordWebhookEnv           = "DISCORD_WEBHOOK_URL"
)

var defaultUploadTags = []string{"AI", "IT", "株式投資", "市場分析", "日次レポート"}

// DefaultFeedSources mirrors the corporate IR and tech news feeds the pipeline
// was designed around.
func DefaultFeedSources() []FeedSource {
	const (
		groupIR      = "Corporate IR (English)"
		groupJapanIR = "Japanese Corporate IR"
		groupNews    = "Business News"
	)
	return []FeedSource{
		{Name: "NVIDIA", URL: "https://nvidianews.nvidia.com/releases/rss", Category: "GPU/AI Hardware", Group: groupIR},
		{Name: "Microsoft", URL: "https://news.microsoft.com/feed/", Category: "Cloud/AI Platform", Group: groupIR},
		{Name: "Google/Alphabet", URL: "https://blog.google/rss/", Category: "AI Research/Cloud", Group: groupIR},
		{Name: "AMD", URL: "https://ir.amd.com/rss/news-releases/default.aspx", Category: "GPU/CPU", Group: groupIR},
		{Name: "Oracle", URL: "https://www.oracle.com/news/rss/", Category: "Cloud/Database", Group: groupIR},
		{Name: "Intel", URL: "https://www.intc.com/news-events/press-releases/rss", Category: "CPU/AI Chips", Group: groupIR},
		{Name: "Qualcomm", URL: "https://www.qualcomm.com/news/rss", Category: "Mobile/AI Chips", Group: groupIR},
		{Name: "Broadcom", URL: "https://investors.broadcom.com/news-releases/rss", Category: "Semiconductors", Group: groupIR},
		{Name: "Arm", URL: "https://newsroom.arm.com/rss", Category: "CPU Architecture/IoT", Group: groupIR},
		{Name: "SoftBank Group", URL: "https://group.softbank/news/rss", Category: "AI/Robotics Investment", Group: groupJapanIR},
		{Name: "Bloomberg Technology", URL: "https://feeds.bloomberg.com/technology/news.rss", Category: "Tech News", Group: groupNews},
	}
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			OutputDir:        defaultOutputDir,
			PresentationsDir: defaultPresentationsDir,
			LogDir:           defaultLogDir,
			StateDir:         defaultStateDir,
		},
		LLM: LLM{
			Provider:       ProviderGemini,
			TimeoutSeconds: defaultLLMTimeoutSeconds,
			Language:       defaultLanguage,
		},
		Images: Images{
			Model:                 defaultImageModel,
			AspectRatio:           defaultAspectRatio,
			MaxAttempts:           defaultImageMaxAttempts,
			RetryDelaySeconds:     defaultImageRetryDelay,
			PromptIntervalSeconds: defaultPromptInterval,
			LogoFolder:            defaultLogoFolder,
		},
		Feeds: Feeds{
			HoursAgo:       defaultHoursAgo,
			TimeoutSeconds: defaultFeedTimeoutSeconds,
			UserAgent:      defaultFeedUserAgent,
			Sources:        DefaultFeedSources(),
		},
		Portfolio: Portfolio{
			CSVPath: defaultPortfolioCSV,
		},
		Narration: Narration{
			IntervalSeconds:       defaultNarrationInterval,
			MaxAttempts:           defaultNarrationAttempts,
			RetryDelaySeconds:     defaultNarrationRetryDelay,
			RateLimitDelaySeconds: defaultNarrationRateLimit,
		},
		TTS: TTS{
			Binary:         defaultTTSBinary,
			Voice:          defaultTTSVoice,
			Concurrency:    defaultTTSConcurrency,
			TimeoutSeconds: defaultTTSTimeoutSeconds,
			FFprobeBinary:  defaultFFprobeBinary,
		},
		Render: Render{
			Enabled:        true,
			NpxBinary:      defaultNpxBinary,
			Composition:    defaultComposition,
			FPS:            defaultFPS,
			TimeoutSeconds: defaultRenderTimeoutSeconds,
		},
		Slides: Slides{
			Theme: defaultSlideTheme,
		},
		Upload: Upload{
			TitlePrefix: defaultUploadTitlePrefix,
			Tags:        append([]string(nil), defaultUploadTags...),
			CategoryID:  defaultUploadCategoryID,
			Privacy:     defaultUploadPrivacy,
			Disclaimer:  defaultUploadDisclaimer,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
			RunCompleted:   true,
			RunFailed:      true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
