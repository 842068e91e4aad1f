package docgen

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Document is the final output of one generation request
type Document struct {
	Bytes       []byte
	ContentType string
	Filename    string
	Template    string
	Pages       int
	Warnings    []NormalizationWarning
	Unresolved  []string
}

// Generator runs payload building, template lookup, rendering, normalization and
// conversion in order. It holds no per-request state and is safe for concurrent use.
type Generator struct {
	Templates  *Registry
	Renderer   *Renderer
	Normalizer *Normalizer
	Converter  Converter
	Logger     *zap.Logger
	Tax        TaxPolicy
}

// NewGenerator wires the default renderer and normalizer
func NewGenerator(templates *Registry, converter Converter, tax TaxPolicy, logger *zap.Logger) *Generator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Generator{
		Templates:  templates,
		Renderer:   NewRenderer(logger),
		Normalizer: NewNormalizer(logger),
		Converter:  converter,
		Logger:     logger,
		Tax:        tax,
	}
}

func (g *Generator) logger() *zap.Logger {
	if g.Logger == nil {
		return zap.NewNop()
	}
	return g.Logger
}

// Generate produces the document for a business record
func (g *Generator) Generate(ctx context.Context, kind Kind, entity any, opts Options) (*Document, error) {
	id, number := EntityIdentity(entity)
	wrap := func(stage Stage, err error) error {
		return &StageError{Stage: stage, Kind: kind, EntityID: id, Err: err}
	}

	format, err := ParseFormat(string(opts.Format))
	if err != nil {
		return nil, wrap(StagePayload, err)
	}
	opts.Format = format
	if opts.Tax.Rate == 0 && len(opts.Tax.Currencies) == 0 {
		opts.Tax = g.Tax
	}

	started := time.Now()
	payload, err := BuildPayload(kind, entity, opts)
	if err != nil {
		return nil, wrap(StagePayload, err)
	}

	currency := opts.Currency
	if c, ok := payload["currency"].(string); ok {
		currency = c
	}
	name, tmpl, err := g.Templates.Resolve(ctx, kind, opts.CompanyProfile, currency)
	if err != nil {
		return nil, wrap(StageTemplate, err)
	}

	doc, stage, err := g.produce(ctx, tmpl, payload, format)
	if err != nil {
		return nil, wrap(stage, err)
	}
	doc.Template = name
	doc.Filename = Filename(kind, number, format)

	g.logger().Info("document generated",
		zap.String("kind", string(kind)),
		zap.String("entity_id", id),
		zap.String("template", name),
		zap.String("format", string(format)),
		zap.Int("bytes", len(doc.Bytes)),
		zap.Int("warnings", len(doc.Warnings)),
		zap.Duration("elapsed", time.Since(started)),
	)
	return doc, nil
}

// Produce runs rendering onward for a template and payload supplied directly
func (g *Generator) Produce(ctx context.Context, tmpl []byte, payload Payload, format Format) (*Document, error) {
	format, err := ParseFormat(string(format))
	if err != nil {
		return nil, &StageError{Stage: StagePayload, Err: err}
	}
	doc, stage, err := g.produce(ctx, tmpl, payload, format)
	if err != nil {
		return nil, &StageError{Stage: stage, Err: err}
	}
	return doc, nil
}

func (g *Generator) produce(ctx context.Context, tmpl []byte, payload Payload, format Format) (*Document, Stage, error) {
	if err := ctx.Err(); err != nil {
		return nil, StageRender, err
	}

	rendered, err := g.Renderer.Render(tmpl, payload)
	if err != nil {
		return nil, StageRender, err
	}

	warnings := g.Normalizer.NormalizePackage(rendered.Package)
	docx, err := rendered.Package.Bytes()
	if err != nil {
		return nil, StageNormalize, err
	}

	doc := &Document{
		Bytes:       docx,
		ContentType: format.ContentType(),
		Warnings:    warnings,
		Unresolved:  rendered.Unresolved,
	}
	if format != FormatPDF {
		return doc, "", nil
	}

	if g.Converter == nil {
		return nil, StageConvert, &ConverterNotFoundError{}
	}
	pdf, err := g.Converter.Convert(ctx, docx)
	if err != nil {
		return nil, StageConvert, err
	}
	doc.Bytes = pdf

	pages, err := InspectPDF(pdf)
	if err != nil {
		g.logger().Warn("could not inspect converted pdf", zap.Error(err))
	}
	doc.Pages = pages
	return doc, "", nil
}
