package extract

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

var disableConfigDir sync.Once

type pendingImage struct {
	page  int
	objNr int
	ext   string
	data  []byte
}

// writeImages extracts every embedded image of the PDF into dir as
// page_<P>_img_<N>.<ext>, N counting from 1 per page in object number order.
// It returns the written filenames keyed by page.
func writeImages(ctx context.Context, content []byte, dir string) (map[int][]string, error) {
	disableConfigDir.Do(api.DisableConfigDir)

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	var pending []pendingImage
	digest := func(img model.Image, _ bool, _ int) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		data, err := io.ReadAll(img)
		if err != nil {
			return fmt.Errorf("read image %s: %w", img.Name, err)
		}
		pending = append(pending, pendingImage{
			page:  img.PageNr,
			objNr: img.ObjNr,
			ext:   imageExt(img.FileType),
			data:  data,
		})
		return nil
	}
	if err := api.ExtractImages(bytes.NewReader(content), nil, digest, conf); err != nil {
		return nil, fmt.Errorf("extract images: %w", err)
	}

	sort.SliceStable(pending, func(i, j int) bool {
		if pending[i].page != pending[j].page {
			return pending[i].page < pending[j].page
		}
		return pending[i].objNr < pending[j].objNr
	})

	images := make(map[int][]string)
	for _, p := range pending {
		name := fmt.Sprintf("page_%d_img_%d.%s", p.page, len(images[p.page])+1, p.ext)
		if err := os.WriteFile(filepath.Join(dir, name), p.data, 0644); err != nil {
			return nil, fmt.Errorf("write image %s: %w", name, err)
		}
		images[p.page] = append(images[p.page], name)
	}
	return images, nil
}

func imageExt(fileType string) string {
	ext := strings.ToLower(strings.TrimPrefix(fileType, "."))
	switch ext {
	case "":
		return "png"
	case "jpeg":
		return "jpg"
	default:
		return ext
	}
}
