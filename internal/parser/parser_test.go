package parser

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/transparencia-pba/boletin-crawler/internal/boletin"
)

const normasURL = "https://normas.gba.gob.ar"

func newTestParser(t *testing.T) (*Parser, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zap.WarnLevel)
	p, err := New(normasURL, zap.New(core))
	require.NoError(t, err)
	return p, logs
}

func TestBulletinInfo(t *testing.T) {
	t.Parallel()

	t.Run("FullHeader", func(t *testing.T) {
		body := []byte(`<html><body><h2>Boletín Oficial N° 30166</h2><span>Edición del 28/08/2026</span></body></html>`)
		info := BulletinInfo(body)
		assert.Equal(t, "30166", info.Number)
		assert.Equal(t, "28/08/2026", info.DisplayDate)
	})

	t.Run("MissingNumber", func(t *testing.T) {
		info := BulletinInfo([]byte(`<html><body>sin encabezado 1/2/2026</body></html>`))
		assert.Empty(t, info.Number)
		assert.Equal(t, "1/2/2026", info.DisplayDate)
	})
}

func sectionPage(links ...string) []byte {
	var b strings.Builder
	b.WriteString(`<html><body><div class="seccion"><ul>`)
	for _, l := range links {
		fmt.Fprintf(&b, `<li><a href="%s">norma</a></li>`, l)
	}
	b.WriteString(`</ul></div></body></html>`)
	return []byte(b.String())
}

func TestCandidates(t *testing.T) {
	t.Parallel()

	t.Run("WellFormedLinks", func(t *testing.T) {
		p, logs := newTestParser(t)
		links := make([]string, 0, 11)
		for i := 0; i < 10; i++ {
			links = append(links, fmt.Sprintf("%s/ar-b/resolucion/2026/%d/%d", normasURL, 100+i, 469000+i))
		}
		// one anchor into the normas site with an unknown path shape
		links = append(links, normasURL+"/buscador?tipo=resolucion")

		cands, err := p.Candidates("https://boletinoficial.gba.gob.ar/secciones/30166/ver", sectionPage(links...))
		require.NoError(t, err)
		assert.Len(t, cands, 10)
		assert.Equal(t, 1, logs.FilterMessage("skipping malformed norm link").Len())

		first := cands[0]
		assert.Equal(t, "resolucion/2026/100/469000", first.ReferenceID)
		assert.Equal(t, boletin.NormResolucion, first.Type)
		assert.Equal(t, "2026", first.Year)
		assert.Equal(t, "100", first.Number)
	})

	t.Run("DuplicateKeepsFirst", func(t *testing.T) {
		p, _ := newTestParser(t)
		link := normasURL + "/ar-b/decreto/2026/7/470001"
		cands, err := p.Candidates("page", sectionPage(link, link))
		require.NoError(t, err)
		assert.Len(t, cands, 1)
	})

	t.Run("ForeignAnchorsIgnored", func(t *testing.T) {
		p, _ := newTestParser(t)
		body := sectionPage(
			normasURL+"/ar-b/disposicion/2026/12/470100",
			"https://www.gba.gob.ar/otra-cosa",
		)
		cands, err := p.Candidates("page", body)
		require.NoError(t, err)
		assert.Len(t, cands, 1)
		assert.Equal(t, boletin.NormDisposicion, cands[0].Type)
	})

	t.Run("SchemaDrift", func(t *testing.T) {
		p, _ := newTestParser(t)
		body := []byte(`<html><body><a href="https://www.gba.gob.ar/home">inicio</a><p>Rediseño del sitio</p></body></html>`)
		cands, err := p.Candidates("page", body)
		assert.Empty(t, cands)

		var parseErr *boletin.ParseError
		require.True(t, errors.As(err, &parseErr))
	})

	t.Run("EmptyPage", func(t *testing.T) {
		p, _ := newTestParser(t)
		_, err := p.Candidates("page", []byte(`<html><body></body></html>`))
		var parseErr *boletin.ParseError
		require.True(t, errors.As(err, &parseErr))
	})
}

func detailCandidate() Candidate {
	return Candidate{
		ReferenceID: "resolucion/2024/40202/468053",
		URL:         normasURL + "/ar-b/resolucion/2024/40202/468053",
		Type:        boletin.NormResolucion,
		Year:        "2024",
		Number:      "40202",
	}
}

func TestDetail(t *testing.T) {
	t.Parallel()

	t.Run("FullNorm", func(t *testing.T) {
		p, _ := newTestParser(t)
		body := []byte(`<html><head><script>var x=1;</script></head><body>
			<h1>Resolución 40202/2024</h1>
			<p>La Plata, 12 de noviembre de 2024.</p>
			<p>VISTO: el expediente EX-2024-1234 del Ministerio de Salud de la Provincia de Buenos Aires,
			por el cual se propicia la contratación del servicio de limpieza integral de los hospitales
			provinciales durante el período 2024-2025, y la necesidad de garantizar su continuidad.
			CONSIDERANDO: que corresponde adjudicar la contratación por la suma de $ 45.600.000,00
			conforme el procedimiento de licitación pública sustanciado;</p>
			<p>POR ELLO, el Ministro resuelve aprobar el gasto indicado.</p>
		</body></html>`)

		n, err := p.Detail(detailCandidate(), body)
		require.NoError(t, err)

		assert.Equal(t, "resolucion/2024/40202/468053", n.ReferenceID)
		assert.Equal(t, "Resolución 40202/2024", n.Title)
		assert.Equal(t, boletin.NormResolucion, n.Type)
		assert.Contains(t, n.Organismo, "Ministerio de Salud")
		assert.Contains(t, n.Excerpt, "expediente EX-2024-1234")
		assert.NotContains(t, n.RawText, "var x=1")
		assert.Equal(t, boletin.CategoryExpenditure, n.Category)
		assert.Equal(t, 45600000.0, n.Amount)
	})

	t.Run("TitleFallback", func(t *testing.T) {
		p, _ := newTestParser(t)
		filler := strings.Repeat("texto administrativo sin encabezado reconocible ", 10)
		body := []byte("<html><body><p>" + filler + "</p></body></html>")

		n, err := p.Detail(detailCandidate(), body)
		require.NoError(t, err)
		assert.Equal(t, "Resolución 40202/2024", n.Title)
		assert.Equal(t, defaultOrganismo, n.Organismo)
		assert.Equal(t, boletin.CategoryNorm, n.Category)
	})

	t.Run("TooShort", func(t *testing.T) {
		p, _ := newTestParser(t)
		_, err := p.Detail(detailCandidate(), []byte(`<html><body>404</body></html>`))
		assert.Error(t, err)
	})

	t.Run("RawTextCapped", func(t *testing.T) {
		p, _ := newTestParser(t)
		long := strings.Repeat("palabra ", 2000)
		body := []byte("<html><body><p>" + long + "</p></body></html>")

		n, err := p.Detail(detailCandidate(), body)
		require.NoError(t, err)
		assert.LessOrEqual(t, len([]rune(n.RawText)), rawTextCap)
	})
}
