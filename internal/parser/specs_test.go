package parser

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractFromKnownContainerWithTable(t *testing.T) {
	e := NewSpecExtractor(testLogger())

	html := `
		<section id="technicalSpecifications">
			<table aria-label="General">
				<tr><td>RAM</td><td>8GB</td></tr>
				<tr><td>CPU</td><td>i5</td></tr>
			</table>
		</section>`

	specs := e.Extract(html)
	assert.Equal(t, map[string]map[string]string{
		"General": {"RAM": "8GB", "CPU": "i5"},
	}, specs)
}

func TestExtractTableGroupFromCaption(t *testing.T) {
	e := NewSpecExtractor(testLogger())

	html := `
		<section id="technicalSpecifications">
			<table>
				<caption>Memória</caption>
				<tr><td>RAM</td><td>16GB</td></tr>
			</table>
			<table>
				<tr><td>Tela</td><td>15,6"</td></tr>
			</table>
		</section>`

	specs := e.Extract(html)
	assert.Equal(t, "16GB", specs["Memória"]["RAM"])
	assert.Equal(t, `15,6"`, specs[DefaultGroup]["Tela"])
}

func TestExtractSkipsBlankRows(t *testing.T) {
	e := NewSpecExtractor(testLogger())

	html := `
		<section id="technicalSpecifications">
			<table>
				<tr><td>RAM</td><td>8GB</td></tr>
				<tr><td></td><td>orphan value</td></tr>
				<tr><td>orphan key</td><td></td></tr>
				<tr><td>single cell</td></tr>
			</table>
		</section>`

	specs := e.Extract(html)
	require.Contains(t, specs, DefaultGroup)
	assert.Equal(t, map[string]string{"RAM": "8GB"}, specs[DefaultGroup])
}

func TestExtractDefinitionList(t *testing.T) {
	e := NewSpecExtractor(testLogger())

	html := `
		<div data-testid="spec-container">
			<dl aria-label="Conectividade">
				<dt>Wi-Fi</dt><dd>802.11ax</dd>
				<dt>Bluetooth</dt><dd>5.2</dd>
				<dt>Sem par</dt>
			</dl>
		</div>`

	specs := e.Extract(html)
	assert.Equal(t, map[string]map[string]string{
		"Conectividade": {"Wi-Fi": "802.11ax", "Bluetooth": "5.2"},
	}, specs)
}

func TestExtractInlineKeyValueItems(t *testing.T) {
	e := NewSpecExtractor(testLogger())

	long := "Descrição: " + strings.Repeat("um notebook muito bom ", 10)
	html := `
		<section id="technicalSpecifications">
			<ul>
				<li>Peso: 1,8kg</li>
				<li>Garantia: 12 meses</li>
				<li>Sem separador nenhum</li>
				<li>` + long + `</li>
			</ul>
		</section>`

	specs := e.Extract(html)
	assert.Equal(t, map[string]map[string]string{
		DefaultGroup: {"Peso": "1,8kg", "Garantia": "12 meses"},
	}, specs)
}

func TestExtractMixedFormats(t *testing.T) {
	e := NewSpecExtractor(testLogger())

	html := `
		<section id="technicalSpecifications">
			<table aria-label="Processador">
				<tr><td>Modelo</td><td>Ryzen 7</td></tr>
			</table>
			<dl aria-label="Bateria">
				<dt>Células</dt><dd>4</dd>
			</dl>
			<ul>
				<li>Cor: Prata</li>
			</ul>
		</section>`

	specs := e.Extract(html)
	assert.Equal(t, "Ryzen 7", specs["Processador"]["Modelo"])
	assert.Equal(t, "4", specs["Bateria"]["Células"])
	assert.Equal(t, "Prata", specs[DefaultGroup]["Cor"])
}

func TestExtractHeuristicContainerScan(t *testing.T) {
	e := NewSpecExtractor(testLogger())

	// No known container id/attribute: the block is found by keyword.
	html := `
		<html><body>
			<section>
				<h2>Ficha Técnica</h2>
				<table>
					<tr><td>RAM</td><td>32GB</td></tr>
				</table>
			</section>
		</body></html>`

	specs := e.Extract(html)
	assert.Equal(t, "32GB", specs[DefaultGroup]["RAM"])
}

func TestExtractSentinelFallback(t *testing.T) {
	e := NewSpecExtractor(testLogger())

	sentinel := map[string]map[string]string{
		SentinelGroup: {SentinelKey: SentinelMessage},
	}

	tests := []struct {
		name string
		html string
	}{
		{name: "empty document", html: ""},
		{name: "no container at all", html: "<html><body><p>nada aqui</p></body></html>"},
		{
			name: "container present but empty of data",
			html: `<section id="technicalSpecifications"><p>ficha técnica em breve</p></section>`,
		},
		{name: "malformed HTML", html: "<div><table><tr><td>broken"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotPanics(t, func() {
				assert.Equal(t, sentinel, e.Extract(tt.html))
			})
		})
	}
}

func TestExtractCustomThresholdAndKeywords(t *testing.T) {
	e := NewSpecExtractor(testLogger())
	e.SetInlineMaxLen(10)
	e.SetKeywords([]string{"datasheet"})

	html := `
		<html><body>
			<div>
				<h3>Datasheet</h3>
				<ul>
					<li>A: 1</li>
					<li>Chave longa demais: valor</li>
				</ul>
			</div>
		</body></html>`

	specs := e.Extract(html)
	assert.Equal(t, map[string]map[string]string{
		DefaultGroup: {"A": "1"},
	}, specs)
}
