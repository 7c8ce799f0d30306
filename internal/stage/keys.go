package stage

// Well-known context keys.
const (
	KeyHoursAgo    = "hours_ago"
	KeyRenderVideo = "render_video"

	KeyArticles      = "articles"
	KeyFetchTime     = "fetch_time"
	KeyTotalArticles = "total_articles"
	KeyStockPrices   = "stock_prices"

	KeyReport        = "report"
	KeyReportDate    = "report_date"
	KeyArticlesCount = "articles_count"
	KeyReportFile    = "report_file"

	KeySlidesData = "slides_data"
	KeySlideFile  = "slide_file"
	KeySlidesDir  = "slides_dir"

	KeyImagePrompts    = "image_prompts"
	KeyPromptsCSV      = "prompts_csv"
	KeyGeneratedImages = "generated_images"
	KeySuccessCount    = "success_count"
	KeyTotalCount      = "total_count"
	KeyImagesDir       = "images_dir"

	KeyScripts     = "scripts"
	KeyScriptNotes = "script_notes"
	KeyScriptFile  = "script_file"
	KeyTotalSlides = "total_slides"

	KeyAudioFiles = "audio_files"
	KeyTimings    = "timings"
	KeyVideoData  = "video_data"
	KeyVideoFile  = "video_file"
	KeyVideoDir   = "video_dir"

	KeyVideoID    = "video_id"
	KeyVideoURL   = "video_url"
	KeyVideoTitle = "video_title"
)
