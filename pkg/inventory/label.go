package inventory

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/stocktrail/stocktrail/pkg/cache"
)

// labelPixels is the edge length of generated QR label images.
const labelPixels = 256

// labelHandler returns a handler that renders the item's scannable code as a
// QR code PNG, sized for thermal label printers. Medium error recovery keeps
// codes readable after minor label damage.
//
// Rendered images are cached by code. A code never changes once minted, so
// cached labels cannot go stale; the cache lookup happens after the actor
// check and the item lookup, keeping 401 and 404 behavior intact.
func labelHandler(engine *Engine, labels *cache.LRU) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := actorFrom(w, r); !ok {
			return
		}

		ref := chi.URLParam(r, "ref")
		item, err := engine.Items().Resolve(ref)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to load item")
			return
		}
		if item == nil {
			writeError(w, http.StatusNotFound, fmt.Sprintf("no item matches %q", ref))
			return
		}

		if png, ok := labels.Get(item.Code); ok {
			w.Header().Set("X-Cache", "HIT")
			writeLabel(w, item.Code, png)
			return
		}

		png, err := qrcode.Encode(item.Code, qrcode.Medium, labelPixels)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to render label")
			return
		}
		labels.Add(item.Code, png)

		writeLabel(w, item.Code, png)
	}
}

func writeLabel(w http.ResponseWriter, code string, png []byte) {
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", code+".png"))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}
