package scanning

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF decoder
	_ "image/jpeg" // Register JPEG decoder
	"image/png"
	"strings"

	"github.com/gen2brain/go-fitz"
	"github.com/gen2brain/heic"
)

// receiptScanPrompt is the shared prompt used by all LLM providers for scanning receipts
const receiptScanPrompt = `You are an expert receipt scanning assistant. Analyze the receipt image and extract the item details.

Return ONLY a valid JSON object with the following structure:
{
  "items": [
    {"quantity": number, "name": "item name", "price": number}
  ],
  "tax": number,
  "service": number
}

Rules:
1. **Items**: Extract all individual items.
   - "quantity" is the item count, default to 1 if not specified.
   - "name" is the item's name as printed.
   - "price" must be the total price for that line (quantity * unit price) as a full number (e.g. 18000 for eighteen thousand), without currency symbols or abbreviations like "k".
2. **Tax**: Find the tax **percentage** and return it as a number (e.g. 11 for 11%). If not found, use 0.
3. **Service**: Find the service charge **percentage** and return it as a number (e.g. 10.5 for 10.5%). If not found, use 0.
4. Do not include subtotal or total fields. Only include items, tax and service.
5. Your entire response must be ONLY the raw JSON object, without any surrounding text, explanations or markdown code blocks.`

const (
	mimePNG  = "image/png"
	mimeJPEG = "image/jpeg"
	mimePDF  = "application/pdf"
)

// prepareImage normalizes an upload into PNG bytes the vision models accept.
// PDFs are rendered from their first page; HEIC photos from phones are
// decoded with a pure Go decoder; JPEG and GIF go through the image package.
func prepareImage(data []byte, contentType string) ([]byte, error) {
	mimeType := strings.ToLower(strings.TrimSpace(contentType))
	if mimeType == "" {
		mimeType = mimeJPEG
	}

	switch {
	case mimeType == mimePDF:
		img, err := renderPDF(data)
		if err != nil {
			return nil, fmt.Errorf("converting PDF to image: %w", err)
		}
		return encodePNG(img)
	case isHEIC(data, mimeType):
		img, err := heic.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("decoding HEIC/HEIF image: %w", err)
		}
		return encodePNG(img)
	case mimeType == mimePNG:
		return data, nil
	default:
		img, _, err := image.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("unsupported image format (supported: JPEG, PNG, GIF, HEIC, HEIF, PDF): %w", err)
		}
		return encodePNG(img)
	}
}

// renderPDF renders the first page, which holds the whole receipt in practice
func renderPDF(data []byte) (image.Image, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, fmt.Errorf("opening PDF: %w", err)
	}
	defer doc.Close()

	img, err := doc.Image(0)
	if err != nil {
		return nil, fmt.Errorf("rendering PDF page: %w", err)
	}
	return img, nil
}

func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encoding PNG: %w", err)
	}
	return buf.Bytes(), nil
}

// isHEIC detects HEIC/HEIF by MIME type or by the ftyp box brand at offset 4
func isHEIC(data []byte, mimeType string) bool {
	if strings.Contains(mimeType, "heic") || strings.Contains(mimeType, "heif") {
		return true
	}
	if len(data) < 12 || string(data[4:8]) != "ftyp" {
		return false
	}
	switch string(data[8:12]) {
	case "heic", "heif", "mif1", "msf1":
		return true
	}
	return false
}
