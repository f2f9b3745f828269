package convert

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

const genericCSV = "id,name,notes\n1,Alpha, first \n2,Beta,\n"

func TestConvertGenericPerRow(t *testing.T) {
	out, err := Convert("temp/report.csv", []byte(genericCSV), Options{Mode: ModePerRow})
	require.NoError(t, err)

	assert.Equal(t, ParserGeneric, out.Parser)
	assert.Equal(t, "id", out.IDField)
	assert.Equal(t, "utf-8", out.Encoding)
	assert.Equal(t, ',', out.Delimiter)
	assert.Equal(t, 2, out.Rows)
	require.Len(t, out.Documents, 2)

	assert.Equal(t, "1.md", out.Documents[0].Name)
	assert.Equal(t, "# 1\n\n**id:** 1\n\n**name:** Alpha\n\n**notes:** first\n\n", string(out.Documents[0].Content))
	assert.Equal(t, "2.md", out.Documents[1].Name)
	assert.Equal(t, "# 2\n\n**id:** 2\n\n**name:** Beta\n\n**notes:** \n\n", string(out.Documents[1].Content))
}

func TestConvertBundle(t *testing.T) {
	out, err := Convert("temp/report.csv", []byte(genericCSV), Options{Mode: ModeBundle})
	require.NoError(t, err)
	require.Len(t, out.Documents, 1)

	doc := out.Documents[0]
	assert.Equal(t, "report.md", doc.Name)
	content := string(doc.Content)
	assert.True(t, strings.HasPrefix(content, "# report\n\n---\n\n# 1\n"))
	assert.Contains(t, content, "**name:** Beta")
	assert.Equal(t, 2, strings.Count(content, "\n---\n"))
}

func TestConvertBundleWithoutRows(t *testing.T) {
	out, err := Convert("empty.csv", []byte("id,name\n"), Options{})
	require.NoError(t, err)
	require.Len(t, out.Documents, 1)
	assert.Equal(t, "# empty\n\n_No rows._\n", string(out.Documents[0].Content))
}

func TestConvertIsDeterministic(t *testing.T) {
	raw := []byte("Subject,Body\nHello,World\nHello,Again\n")

	first, err := Convert("a.csv", raw, Options{Mode: ModePerRow})
	require.NoError(t, err)
	second, err := Convert("a.csv", raw, Options{Mode: ModePerRow})
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, "Hello.md", first.Documents[0].Name)
	assert.Equal(t, "Hello (2).md", first.Documents[1].Name)
}

func TestConvertMule(t *testing.T) {
	raw := "Key,Mule Jira Issue,Summary\nA,MULE-1,Broken sync\nB,,Skip me\n"

	out, err := Convert("mule.csv", []byte(raw), Options{Mode: ModePerRow})
	require.NoError(t, err)

	assert.Equal(t, ParserMule, out.Parser)
	assert.Equal(t, 2, out.Rows)
	assert.Equal(t, 1, out.Skipped)
	require.Len(t, out.Documents, 1)
	assert.Equal(t, "MULE-1.md", out.Documents[0].Name)
	assert.Equal(t, "# MULE-1\n\n**Key:** A\n\n**Mule Jira Issue:** MULE-1\n\n**Summary:** Broken sync\n\n", string(out.Documents[0].Content))
}

func TestConvertKnowledgeBaseTSV(t *testing.T) {
	raw := "TITLE\tCONTENTS\tID\tCATEGORY\n" +
		"Reset password\t{\"body\": \"<p>Open <b>Settings</b></p><p>Click reset</p>\"}\t42\tAccount\n" +
		"\t<p>no title</p>\t43\tAccount\n"

	out, err := Convert("kb.tsv", []byte(raw), Options{Mode: ModePerRow})
	require.NoError(t, err)

	assert.Equal(t, ParserKB, out.Parser)
	assert.Equal(t, '\t', out.Delimiter)
	assert.Equal(t, 1, out.Skipped)
	require.Len(t, out.Documents, 1)

	want := "# Reset password\n\n" +
		"## Metadata\n" +
		"- **ID**: 42\n" +
		"- **CATEGORY**: Account\n" +
		"- **FULL_PATH**: \n" +
		"- **LAST_UPDATED**: \n" +
		"- **SOURCE**: \n" +
		"\n---\n\n" +
		"Open\nSettings\nClick reset\n"
	assert.Equal(t, "Reset password.md", out.Documents[0].Name)
	assert.Equal(t, want, string(out.Documents[0].Content))
}

func TestConvertFallback(t *testing.T) {
	raw := "colA,colB\n,val\n,\n"

	out, err := Convert("x.csv", []byte(raw), Options{Mode: ModePerRow})
	require.NoError(t, err)

	assert.Equal(t, ParserFallback, out.Parser)
	require.Len(t, out.Documents, 2)
	assert.Equal(t, "val.md", out.Documents[0].Name)
	assert.Equal(t, "row.md", out.Documents[1].Name)
}

func TestConvertWindows1252(t *testing.T) {
	raw := []byte("name,city\nRen\xe9,Z\xfcrich\n")

	out, err := Convert("legacy.csv", raw, Options{Mode: ModePerRow})
	require.NoError(t, err)

	assert.Equal(t, "windows-1252", out.Encoding)
	require.Len(t, out.Documents, 1)
	assert.Equal(t, "René.md", out.Documents[0].Name)
	assert.Contains(t, string(out.Documents[0].Content), "**city:** Zürich")
}

func TestConvertXLSX(t *testing.T) {
	f := excelize.NewFile()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]interface{}{"Subject", "Owner"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]interface{}{"VPN outage", "net-team"}))
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	require.NoError(t, f.Close())

	out, err := Convert("Weekly.XLSX", buf.Bytes(), Options{Mode: ModePerRow})
	require.NoError(t, err)

	assert.Equal(t, "xlsx", out.Encoding)
	assert.Equal(t, ParserGeneric, out.Parser)
	assert.Equal(t, "Subject", out.IDField)
	require.Len(t, out.Documents, 1)
	assert.Equal(t, "VPN outage.md", out.Documents[0].Name)
	assert.Equal(t, "# VPN outage\n\n**Subject:** VPN outage\n\n**Owner:** net-team\n\n", string(out.Documents[0].Content))
}

func TestConvertErrors(t *testing.T) {
	_, err := Convert("a.csv", nil, Options{})
	assert.ErrorIs(t, err, ErrEmptyInput)

	_, err = Convert("a.csv", []byte("\n\n"), Options{})
	assert.ErrorIs(t, err, ErrNoHeader)

	_, err = Convert("a.csv", []byte(",,\n1,2,3\n"), Options{})
	assert.ErrorIs(t, err, ErrNoHeader)

	_, err = Convert("a.csv", []byte(genericCSV), Options{Mode: "zip"})
	assert.EqualError(t, err, `unknown output mode "zip"`)
}

func TestBaseName(t *testing.T) {
	assert.Equal(t, "report_raw_20240101_0930", BaseName("temp/report_raw_20240101_0930.csv"))
	assert.Equal(t, "kb", BaseName(`C:\exports\kb.tsv`))
	assert.Equal(t, "input_report", BaseName(""))
	assert.Equal(t, "noext", BaseName("noext"))
}
