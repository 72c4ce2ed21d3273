package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/lfarias/zoomrank/internal/models"
)

// Writer renders the ranked records as a CSV file and a console summary.
// Specification pairs are flattened into one "<group> - <key>" column each.
type Writer struct {
	logger *slog.Logger
}

func NewWriter(logger *slog.Logger) *Writer {
	return &Writer{
		logger: logger.With("component", "report"),
	}
}

var baseHeader = []string{
	"Nome", "Preco", "Avaliacao", "Relevancia", "Ranking_Final", "Link", "Filtros_Pesquisados",
}

// WriteCSV writes one row per ranked record. Specification columns are the
// union over all records, sorted by group then key so repeated runs produce
// identical files.
func (w *Writer) WriteCSV(out io.Writer, products []*models.Product) error {
	if len(products) == 0 {
		return fmt.Errorf("nothing to rank: no products to write")
	}

	specColumns := collectSpecColumns(products)

	cw := csv.NewWriter(out)

	header := append(append([]string{}, baseHeader...), specColumns...)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for _, p := range products {
		row := []string{
			p.Name,
			strconv.FormatFloat(p.Price, 'f', 2, 64),
			strconv.FormatFloat(p.Rating, 'f', 1, 64),
			strconv.Itoa(p.OccurrenceCount),
			strconv.FormatFloat(p.ScoreValue(), 'f', 4, 64),
			p.DetailURL,
			strings.Join(p.ObservedFilters, ", "),
		}

		for _, column := range specColumns {
			row = append(row, specValue(p, column))
		}

		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write row for %q: %w", p.Name, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// SaveCSV writes the report to a file.
func (w *Writer) SaveCSV(filename string, products []*models.Product) error {
	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create report file: %w", err)
	}
	defer f.Close()

	if err := w.WriteCSV(f, products); err != nil {
		return err
	}

	w.logger.Info("report saved", "file", filename, "products", len(products))
	return nil
}

// PrintSummary writes a human-readable top-N listing.
func (w *Writer) PrintSummary(out io.Writer, products []*models.Product) {
	if len(products) == 0 {
		fmt.Fprintln(out, "Nenhum produto para exibir.")
		return
	}

	fmt.Fprintln(out, "\n--- Top Produtos ---")
	for i, p := range products {
		fmt.Fprintf(out, "#%d: %s\n", i+1, p.Name)
		fmt.Fprintf(out, "  Preço: R$ %.2f\n", p.Price)
		fmt.Fprintf(out, "  Avaliação: %.1f\n", p.Rating)
		fmt.Fprintf(out, "  Relevância (frequência): %d\n", p.OccurrenceCount)
		fmt.Fprintf(out, "  Score: %.4f\n", p.ScoreValue())
		fmt.Fprintf(out, "  Filtros: %s\n", strings.Join(p.ObservedFilters, ", "))
		fmt.Fprintf(out, "  Link: %s\n", p.DetailURL)
		fmt.Fprintln(out, strings.Repeat("-", 20))
	}
}

func collectSpecColumns(products []*models.Product) []string {
	seen := make(map[string]struct{})
	var columns []string

	for _, p := range products {
		for group, pairs := range p.Specifications {
			for key := range pairs {
				column := group + " - " + key
				if _, ok := seen[column]; !ok {
					seen[column] = struct{}{}
					columns = append(columns, column)
				}
			}
		}
	}

	sort.Strings(columns)
	return columns
}

func specValue(p *models.Product, column string) string {
	group, key, _ := strings.Cut(column, " - ")
	if pairs, ok := p.Specifications[group]; ok {
		return pairs[key]
	}
	return ""
}
