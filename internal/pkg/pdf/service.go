// internal/pkg/pdf/service.go
package pdf

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"strings"

	"github.com/SebastiaanKlippert/go-wkhtmltopdf"
	"github.com/shopspring/decimal"

	"github.com/your-org/storefront-backend/internal/config"
	"github.com/your-org/storefront-backend/internal/domain/order"
)

var invoiceTmpl = template.Must(template.New("invoice").Funcs(template.FuncMap{
	"money": func(d decimal.Decimal) string { return "$" + d.StringFixed(2) },
	"title": func(s order.OrderStatus) string {
		v := string(s)
		if v == "" {
			return v
		}
		return strings.ToUpper(v[:1]) + v[1:]
	},
}).Parse(invoiceTemplate))

// Service handles PDF generation
type Service struct {
	config *config.Config
}

// NewService creates a new PDF service
func NewService(cfg *config.Config) *Service {
	return &Service{
		config: cfg,
	}
}

// GenerateInvoice renders the frozen order as a PDF.
// Requires the wkhtmltopdf binary on PATH or in WKHTMLTOPDF_PATH.
func (s *Service) GenerateInvoice(ctx context.Context, o *order.Order) ([]byte, error) {
	htmlContent, err := s.RenderHTML(o)
	if err != nil {
		return nil, err
	}

	pdfg, err := wkhtmltopdf.NewPDFGenerator()
	if err != nil {
		return nil, fmt.Errorf("failed to create PDF generator: %w", err)
	}

	pdfg.Dpi.Set(300)
	pdfg.Orientation.Set(wkhtmltopdf.OrientationPortrait)
	pdfg.PageSize.Set(wkhtmltopdf.PageSizeA4)
	pdfg.Title.Set("Invoice " + o.OrderNumber)

	page := wkhtmltopdf.NewPageReader(strings.NewReader(htmlContent))
	page.FooterRight.Set("[page]")
	page.FooterFontSize.Set(9)
	page.Zoom.Set(0.95)
	pdfg.AddPage(page)

	if err := pdfg.CreateContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to create PDF: %w", err)
	}

	return pdfg.Bytes(), nil
}

// RenderHTML builds the invoice document that GenerateInvoice converts
func (s *Service) RenderHTML(o *order.Order) (string, error) {
	data := InvoiceData{
		InvoiceNumber: "INV-" + strings.TrimPrefix(o.OrderNumber, "ORD-"),
		InvoiceDate:   o.CreatedAt.Format("January 2, 2006"),
		Order:         o,
		Store: StoreInfo{
			Name:    s.config.Invoice.StoreName,
			Address: s.config.Invoice.StoreAddress,
			Email:   s.config.Invoice.SupportEmail,
		},
	}
	if o.User != nil {
		data.Customer = o.User.GetDisplayName()
		data.CustomerEmail = o.User.Email
	}

	var buf bytes.Buffer
	if err := invoiceTmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}
	return buf.String(), nil
}

// InvoiceData represents the data passed to the invoice template
type InvoiceData struct {
	InvoiceNumber string
	InvoiceDate   string
	Customer      string
	CustomerEmail string
	Order         *order.Order
	Store         StoreInfo
}

// StoreInfo represents the seller block on the invoice
type StoreInfo struct {
	Name    string
	Address string
	Email   string
}

// Invoice HTML template
const invoiceTemplate = `
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>Invoice {{.InvoiceNumber}}</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 0; padding: 20px; color: #333; }
        .header { margin-bottom: 30px; border-bottom: 2px solid #eee; padding-bottom: 20px; overflow: hidden; }
        .store-info { float: left; }
        .invoice-info { float: right; text-align: right; }
        .invoice-title { font-size: 28px; font-weight: bold; color: #2563eb; margin-bottom: 10px; }
        .section-title { font-size: 16px; font-weight: bold; margin-bottom: 10px; color: #374151; }
        .shipping-info { margin-bottom: 30px; }
        .items-table { width: 100%; border-collapse: collapse; margin-bottom: 30px; }
        .items-table th, .items-table td { border: 1px solid #ddd; padding: 12px 8px; text-align: left; }
        .items-table th { background-color: #f8f9fa; }
        .items-table .num { text-align: right; width: 90px; }
        .totals { float: right; width: 300px; }
        .totals td { padding: 8px; text-align: right; }
        .total-row { font-size: 18px; font-weight: bold; border-top: 2px solid #333; }
        .footer { clear: both; margin-top: 50px; padding-top: 20px; border-top: 1px solid #eee; text-align: center; color: #666; font-size: 12px; }
    </style>
</head>
<body>
    <div class="header">
        <div class="store-info">
            <h1>{{.Store.Name}}</h1>
            <p>{{.Store.Address}}</p>
            <p>Email: {{.Store.Email}}</p>
        </div>
        <div class="invoice-info">
            <div class="invoice-title">INVOICE</div>
            <p><strong>Invoice #:</strong> {{.InvoiceNumber}}</p>
            <p><strong>Order #:</strong> {{.Order.OrderNumber}}</p>
            <p><strong>Order Date:</strong> {{.InvoiceDate}}</p>
            <p><strong>Status:</strong> {{title .Order.Status}}</p>
        </div>
    </div>

    <div class="shipping-info">
        <div class="section-title">Ship To:</div>
        {{if .Customer}}<p><strong>{{.Customer}}</strong></p>{{end}}
        <p>{{.Order.ShippingAddress.Street}}</p>
        <p>{{.Order.ShippingAddress.City}}{{if .Order.ShippingAddress.State}}, {{.Order.ShippingAddress.State}}{{end}} {{.Order.ShippingAddress.ZipCode}}</p>
        <p>{{.Order.ShippingAddress.Country}}</p>
        {{if .CustomerEmail}}<p>Email: {{.CustomerEmail}}</p>{{end}}
    </div>

    <table class="items-table">
        <thead>
            <tr>
                <th>Item</th>
                <th class="num">Qty</th>
                <th class="num">Price</th>
                <th class="num">Total</th>
            </tr>
        </thead>
        <tbody>
            {{range .Order.Items}}
            <tr>
                <td><strong>{{.ProductName}}</strong></td>
                <td class="num">{{.Quantity}}</td>
                <td class="num">{{money .UnitPrice}}</td>
                <td class="num">{{money .LineTotal}}</td>
            </tr>
            {{end}}
        </tbody>
    </table>

    <div class="totals">
        <table>
            <tr class="total-row">
                <td>Total:</td>
                <td>{{money .Order.TotalAmount}}</td>
            </tr>
        </table>
    </div>

    <div class="footer">
        <p>Thank you for shopping with {{.Store.Name}}!</p>
        <p>If you have any questions about this invoice, please contact us at {{.Store.Email}}</p>
    </div>
</body>
</html>
`
