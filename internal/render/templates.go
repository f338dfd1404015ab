package render

// blockTemplates holds one template per block type. Every root element
// carries the resolved inline style; data-block-id appears only in editor
// mode so storefront markup stays clean.
const blockTemplates = `
{{define "attrs"}} style="{{.StyleAttr}}"{{if .Editor}} data-block-id="{{.ID}}"{{end}}{{end}}

{{define "hero"}}<section class="pb-block pb-hero{{if .FullBleed}} pb-full-bleed{{end}}"{{template "attrs" .}}>
  <div class="pb-hero-inner">
    <h1>{{.Title}}</h1>
    {{if .Subtitle}}<p class="pb-hero-subtitle">{{.Subtitle}}</p>{{end}}
    {{if .ButtonText}}<a class="pb-hero-button" href="{{.ButtonLink}}">{{.ButtonText}}</a>{{end}}
  </div>
</section>{{end}}

{{define "text"}}<section class="pb-block pb-text{{if .FullBleed}} pb-full-bleed{{end}}"{{template "attrs" .}}>
  <div class="pb-prose">{{.Body}}</div>
</section>{{end}}

{{define "html"}}<section class="pb-block pb-html{{if .FullBleed}} pb-full-bleed{{end}}"{{template "attrs" .}}>
{{.Body}}
</section>{{end}}

{{define "product-grid"}}<section class="pb-block pb-product-grid{{if .FullBleed}} pb-full-bleed{{end}}"{{template "attrs" .}}>
  {{if .Title}}<h2 class="pb-grid-title">{{.Title}}</h2>{{end}}
  <div class="pb-grid">
    {{range .Products}}<article class="pb-product-card">
      {{if .Images}}<img src="{{index .Images 0}}" alt="{{.Name}}" loading="lazy">{{end}}
      <h3>{{.Name}}</h3>
      <p class="pb-price" style="color:{{$.PriceColor}}">${{printf "%.2f" .Price}}</p>
    </article>{{else}}<p class="pb-grid-empty">No products to show yet.</p>{{end}}
  </div>
</section>{{end}}

{{define "columns"}}<section class="pb-block pb-columns{{if .FullBleed}} pb-full-bleed{{end}}"{{template "attrs" .}}>
  <div class="pb-columns-row">
    {{range .Columns}}<div class="pb-column">
      {{if .Title}}<h3>{{.Title}}</h3>{{end}}
      {{if .Text}}<p>{{.Text}}</p>{{end}}
    </div>{{end}}
  </div>
</section>{{end}}

{{define "promo-banner"}}<aside class="pb-block pb-promo{{if .FullBleed}} pb-full-bleed{{end}}"{{template "attrs" .}}>
  {{if .Link}}<a href="{{.Link}}">{{.Text}}</a>{{else}}<span>{{.Text}}</span>{{end}}
  {{if .Dismissible}}<button class="pb-promo-dismiss" type="button" aria-label="Dismiss">&times;</button>{{end}}
</aside>{{end}}
`
