package po

// DeckTheme 表示幻灯片主题。生成结果统一固定为 DEFAULT（见 generation 包的归一化）。
type DeckTheme string

// 主题常量定义
const (
	DeckThemeDefault DeckTheme = "DEFAULT"
	DeckThemeLight   DeckTheme = "LIGHT"
	DeckThemeDark    DeckTheme = "DARK"
)

// ImagePlacement 表示页面图片在幻灯片上的摆放方式。
type ImagePlacement string

// 摆放常量定义
const (
	ImagePlacementLeft       ImagePlacement = "LEFT"
	ImagePlacementRight      ImagePlacement = "RIGHT"
	ImagePlacementFullWidth  ImagePlacement = "FULL_WIDTH"
	ImagePlacementBackground ImagePlacement = "BACKGROUND"
)

// SlideImage 为幻灯片引用的一张页面渲染图。
type SlideImage struct {
	URL       string         `json:"url"`
	Placement ImagePlacement `json:"placement,omitempty"`
	WidthPx   *int           `json:"widthPx,omitempty"`
}

// Slide 为一页幻灯片的结构化描述。
type Slide struct {
	Title   string       `json:"title"`
	Bullets []string     `json:"bullets,omitempty"`
	Notes   string       `json:"notes,omitempty"`
	Images  []SlideImage `json:"images,omitempty"`
}

// SlideDeck 为任务结果对象（results/{jobId}/result.json）的顶层结构。
// 不变量：Slides 非空；所有 Images[].URL 均来自该任务的渲染页白名单。
type SlideDeck struct {
	Title  string    `json:"title"`
	Theme  DeckTheme `json:"theme"`
	Slides []Slide   `json:"slides"`
}

// RenderedPage 为渲染服务产出的单页图片。Index 为 1 起始的页序号，
// 与源 PDF 页顺序一致。
type RenderedPage struct {
	Index      int    `json:"index"`
	ObjectPath string `json:"gcsObject"`
	WidthPx    *int   `json:"widthPx,omitempty"`
	HeightPx   *int   `json:"heightPx,omitempty"`

	// URL 为下发给生成服务的只读签名地址，由 worker 在渲染后填充。
	URL string `json:"-"`
}

// PageText 为一页（或一个退化文本块）的抽取文本。
type PageText struct {
	Index int    `json:"index"`
	Text  string `json:"text"`
}
