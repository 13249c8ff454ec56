package transport

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/beevik/etree"
	"github.com/edocument-exchange/internal/domain/shared"
)

const signaturePrefix = "semnatura_"

// Receipt is the content of a downloaded verdict archive.
type Receipt struct {
	// Name and Content hold the file kept as the signed receipt, pretty printed.
	Name    string
	Content []byte
	// Errors lists the upstream diagnostics when the archive holds an error file.
	Errors []string
}

// Rejected reports whether the archive carried an error file instead of a signed document.
func (r *Receipt) Rejected() bool {
	return len(r.Errors) > 0
}

// ExtractReceipt opens a verdict archive. A signed archive yields the signature file;
// a rejection yields the error file and its messages.
func ExtractReceipt(archive []byte) (*Receipt, error) {
	zr, err := zip.NewReader(bytes.NewReader(archive), int64(len(archive)))
	if err != nil {
		return nil, shared.NewError(shared.KindUpstreamBusiness, "the receipt is not a valid archive", err)
	}

	var signature, other *zip.File
	for _, f := range zr.File {
		if f.FileInfo().IsDir() || !strings.EqualFold(path.Ext(f.Name), ".xml") {
			continue
		}
		if strings.HasPrefix(path.Base(f.Name), signaturePrefix) {
			signature = f
		} else if other == nil {
			other = f
		}
	}
	if other == nil && signature == nil {
		return nil, shared.NewError(shared.KindUpstreamBusiness, "the receipt archive holds no XML file", nil)
	}

	if other != nil {
		raw, err := readZipFile(other)
		if err != nil {
			return nil, err
		}
		if messages := errorMessages(raw); len(messages) > 0 {
			pretty, err := PrettyXML(raw)
			if err != nil {
				return nil, err
			}
			return &Receipt{Name: path.Base(other.Name), Content: pretty, Errors: messages}, nil
		}
	}
	if signature == nil {
		return nil, shared.NewError(shared.KindUpstreamBusiness, "the receipt archive holds no signature file", nil)
	}

	raw, err := readZipFile(signature)
	if err != nil {
		return nil, err
	}
	pretty, err := PrettyXML(raw)
	if err != nil {
		return nil, err
	}
	return &Receipt{Name: path.Base(signature.Name), Content: pretty}, nil
}

// PrettyXML re-serializes an XML document indented by two spaces.
func PrettyXML(raw []byte) ([]byte, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(raw); err != nil {
		return nil, shared.NewError(shared.KindSerialization, "failed to parse XML", err)
	}
	doc.Indent(2)
	out, err := doc.WriteToBytes()
	if err != nil {
		return nil, shared.NewError(shared.KindSerialization, "failed to write XML", err)
	}
	return out, nil
}

func readZipFile(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, shared.NewError(shared.KindUpstreamBusiness, fmt.Sprintf("failed to open %s", f.Name), err)
	}
	defer rc.Close()
	data, err := io.ReadAll(io.LimitReader(rc, maxResponseSize))
	if err != nil {
		return nil, shared.NewError(shared.KindUpstreamBusiness, fmt.Sprintf("failed to read %s", f.Name), err)
	}
	return data, nil
}

// errorMessages collects the errorMessage attributes of an ANAF error file.
func errorMessages(raw []byte) []string {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(raw); err != nil {
		return nil
	}
	var messages []string
	for _, e := range doc.FindElements("//Error") {
		if msg := e.SelectAttrValue("errorMessage", ""); msg != "" {
			messages = append(messages, msg)
		}
	}
	return messages
}
