package pagebuilder

import "fmt"

// StyleOverrides is the partial set of per-block presentation overrides. An
// empty string (or nil FullBleed) means "inherit": the resolver fills the gap
// from a type default, the theme, or a literal. Length fields hold literal
// CSS strings ("5rem", "80vh") and pass through the cascade verbatim.
type StyleOverrides struct {
	Background    string `json:"background,omitempty" yaml:"background,omitempty"`
	TextColor     string `json:"textColor,omitempty" yaml:"text_color,omitempty"`
	AccentColor   string `json:"accentColor,omitempty" yaml:"accent_color,omitempty"`
	PaddingTop    string `json:"paddingTop,omitempty" yaml:"padding_top,omitempty"`
	PaddingRight  string `json:"paddingRight,omitempty" yaml:"padding_right,omitempty"`
	PaddingBottom string `json:"paddingBottom,omitempty" yaml:"padding_bottom,omitempty"`
	PaddingLeft   string `json:"paddingLeft,omitempty" yaml:"padding_left,omitempty"`
	MinHeight     string `json:"minHeight,omitempty" yaml:"min_height,omitempty"`
	TextAlign     string `json:"textAlign,omitempty" yaml:"text_align,omitempty"`
	FullBleed     *bool  `json:"fullBleed,omitempty" yaml:"full_bleed,omitempty"`
}

// StyleRecord is a fully resolved style: every field holds a concrete value,
// so the renderer never null-checks.
type StyleRecord struct {
	Background    string
	TextColor     string
	AccentColor   string
	PaddingTop    string
	PaddingRight  string
	PaddingBottom string
	PaddingLeft   string
	MinHeight     string
	TextAlign     string
	FullBleed     bool
}

// Theme is the store-wide presentation configuration owned by the settings
// subsystem. The page builder reads it to fill gaps left by per-block
// overrides and empty content fields; it never writes it.
type Theme struct {
	BrandColor     string `json:"brandColor" yaml:"brand_color"`
	AccentColor    string `json:"accentColor" yaml:"accent_color"`
	SecondaryColor string `json:"secondaryColor" yaml:"secondary_color"`
	PriceColor     string `json:"priceColor" yaml:"price_color"`

	HeadingFont  string `json:"headingFont" yaml:"heading_font"`
	BodyFont     string `json:"bodyFont" yaml:"body_font"`
	HeadingColor string `json:"headingColor" yaml:"heading_color"`
	BodyColor    string `json:"bodyColor" yaml:"body_color"`

	HeaderBackground string `json:"headerBackground" yaml:"header_background"`
	HeaderText       string `json:"headerText" yaml:"header_text"`
	FooterBackground string `json:"footerBackground" yaml:"footer_background"`
	FooterText       string `json:"footerText" yaml:"footer_text"`

	StoreName        string `json:"storeName" yaml:"store_name"`
	StoreDescription string `json:"storeDescription" yaml:"store_description"`
}

// DefaultTheme returns the theme used when the settings subsystem has not
// configured one yet (fresh sites, tests).
func DefaultTheme() Theme {
	return Theme{
		BrandColor:       "#1a1a2e",
		AccentColor:      "#3b82f6",
		SecondaryColor:   "#8b5cf6",
		PriceColor:       "#16a34a",
		HeadingFont:      "system-ui",
		BodyFont:         "system-ui",
		HeadingColor:     "#111827",
		BodyColor:        "#374151",
		HeaderBackground: "#ffffff",
		HeaderText:       "#111827",
		FooterBackground: "#1a1a2e",
		FooterText:       "#e5e7eb",
		StoreName:        "My Store",
		StoreDescription: "Welcome to my store",
	}
}

// Hard-coded literal defaults, the last stop of the cascade.
const (
	defaultBackground = "#ffffff"
	defaultTextColor  = "#1f2937"
	defaultPadding    = "0"
	defaultMinHeight  = "auto"
	defaultTextAlign  = "left"
)

// ResolveStyle computes the effective style for one block instance. It is
// total and deterministic: every field resolves, first match wins, in the
// order explicit override, type-derived default, theme field, literal.
// Length strings are passed through unchanged, never parsed or coerced.
func ResolveStyle(overrides StyleOverrides, theme Theme, blockType string) StyleRecord {
	r := StyleRecord{
		Background:    pick(overrides.Background, typeBackground(theme, blockType), defaultBackground),
		TextColor:     pick(overrides.TextColor, typeTextColor(theme, blockType), pick(theme.BodyColor, "", defaultTextColor)),
		AccentColor:   pick(overrides.AccentColor, "", pick(theme.AccentColor, "", defaultTextColor)),
		PaddingTop:    pick(overrides.PaddingTop, typePadding(blockType), defaultPadding),
		PaddingRight:  pick(overrides.PaddingRight, "", defaultPadding),
		PaddingBottom: pick(overrides.PaddingBottom, typePadding(blockType), defaultPadding),
		PaddingLeft:   pick(overrides.PaddingLeft, "", defaultPadding),
		MinHeight:     pick(overrides.MinHeight, typeMinHeight(blockType), defaultMinHeight),
		TextAlign:     pick(overrides.TextAlign, typeTextAlign(blockType), defaultTextAlign),
	}

	if overrides.FullBleed != nil {
		r.FullBleed = *overrides.FullBleed
	} else {
		// Heroes and promo banners span the full viewport width by default.
		r.FullBleed = blockType == TypeHero || blockType == TypePromoBanner
	}

	return r
}

// pick returns the first non-empty value.
func pick(explicit, derived, fallback string) string {
	if explicit != "" {
		return explicit
	}
	if derived != "" {
		return derived
	}
	return fallback
}

// typeBackground derives a per-type background from the theme. The hero
// gradient composes the accent color with a fixed secondary stop so fresh
// stores get a presentable banner without configuring anything.
func typeBackground(theme Theme, blockType string) string {
	switch blockType {
	case TypeHero:
		accent := pick(theme.AccentColor, "", "#3b82f6")
		secondary := pick(theme.SecondaryColor, "", "#8b5cf6")
		return fmt.Sprintf("linear-gradient(135deg, %s 0%%, %s 100%%)", accent, secondary)
	case TypePromoBanner:
		return theme.BrandColor
	}
	return ""
}

func typeTextColor(theme Theme, blockType string) string {
	switch blockType {
	case TypeHero, TypePromoBanner:
		// Both sit on dark derived backgrounds.
		return "#ffffff"
	case TypeText, TypeColumns:
		return theme.BodyColor
	case TypeProductGrid:
		return theme.HeadingColor
	}
	return ""
}

func typePadding(blockType string) string {
	switch blockType {
	case TypeHero:
		return "5rem"
	case TypeProductGrid, TypeColumns, TypeText:
		return "3rem"
	case TypePromoBanner:
		return "0.75rem"
	}
	return ""
}

func typeMinHeight(blockType string) string {
	if blockType == TypeHero {
		return "60vh"
	}
	return ""
}

func typeTextAlign(blockType string) string {
	switch blockType {
	case TypeHero, TypePromoBanner:
		return "center"
	}
	return ""
}
