package generation

import (
	"fmt"
	"sort"
	"strings"

	"github.com/bionicotaku/slidesmith/internal/models/po"
)

// Normalize 将生成输出对齐到确定性的最终形态：
//   - 幻灯片数量截断或补齐到 target，占位页标题为 "Page {n}"
//   - 主题固定为 DEFAULT
//   - 丢弃生成方声明的图片引用，按页码升序为每页确定性地挂载一张截图
func Normalize(deck *po.SlideDeck, target int, images []po.RenderedPage) *po.SlideDeck {
	out := &po.SlideDeck{
		Title: strings.TrimSpace(deck.Title),
		Theme: po.DeckThemeDefault,
	}
	if out.Title == "" {
		out.Title = "Generated Deck"
	}

	slides := make([]po.Slide, 0, target)
	for i := 0; i < len(deck.Slides) && i < target; i++ {
		s := deck.Slides[i]
		slides = append(slides, po.Slide{
			Title:   fallbackTitle(s.Title, i),
			Bullets: s.Bullets,
			Notes:   s.Notes,
		})
	}
	for len(slides) < target {
		slides = append(slides, po.Slide{Title: fmt.Sprintf("Page %d", len(slides)+1)})
	}

	attachImages(slides, images)
	out.Slides = slides
	return out
}

func fallbackTitle(title string, idx int) string {
	title = strings.TrimSpace(title)
	if title == "" {
		return fmt.Sprintf("Page %d", idx+1)
	}
	return title
}

// attachImages 按页码升序把截图逐一挂到幻灯片上，每页最多一张，
// 统一 RIGHT 布局。截图多于幻灯片时多余的丢弃，反之则后续页不挂图。
func attachImages(slides []po.Slide, images []po.RenderedPage) {
	if len(images) == 0 {
		return
	}
	ordered := make([]po.RenderedPage, 0, len(images))
	for _, img := range images {
		if img.URL != "" {
			ordered = append(ordered, img)
		}
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Index < ordered[j].Index })

	for i := range slides {
		if i >= len(ordered) {
			break
		}
		slides[i].Images = []po.SlideImage{{
			URL:       ordered[i].URL,
			Placement: po.ImagePlacementRight,
		}}
	}
}

// TargetSlideCount 计算目标页数：有截图时取 max(截图数, 文本页数)，
// 否则取文本页数；用户上限只缩不扩，下限为 1。
func TargetSlideCount(pageCount, imageCount int, maxSlides *int) int {
	n := pageCount
	if imageCount > 0 && imageCount > n {
		n = imageCount
	}
	target := n
	if maxSlides != nil && *maxSlides < target {
		target = *maxSlides
	}
	if target < 1 {
		target = 1
	}
	return target
}
