package pdf

import (
	"fmt"
	"os"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// readMetadata reads the document information dictionary with pdfcpu.
// Only non-empty entries are returned.
func readMetadata(path string) (md map[string]any, err error) {
	defer func() {
		if r := recover(); r != nil {
			md, err = nil, fmt.Errorf("pdfcpu panic: %v", r)
		}
	}()

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	ctx, err := api.ReadValidateAndOptimize(f, conf)
	if err != nil {
		return nil, fmt.Errorf("pdfcpu read: %w", err)
	}

	md = make(map[string]any)
	for k, v := range map[string]string{
		"Title":        ctx.XRefTable.Title,
		"Author":       ctx.XRefTable.Author,
		"Subject":      ctx.XRefTable.Subject,
		"Keywords":     ctx.XRefTable.Keywords,
		"Creator":      ctx.XRefTable.Creator,
		"Producer":     ctx.XRefTable.Producer,
		"CreationDate": ctx.XRefTable.CreationDate,
		"ModDate":      ctx.XRefTable.ModDate,
	} {
		if v != "" {
			md[k] = v
		}
	}
	if ctx.XRefTable.Encrypt != nil {
		md["Encrypted"] = true
	}
	return md, nil
}
