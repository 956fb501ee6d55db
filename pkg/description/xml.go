package description

import (
	"encoding/xml"
	"fmt"
)

const (
	bdnVersion      = "0.93"
	bdnSchemaNS     = "http://www.w3.org/2001/XMLSchema-instance"
	bdnSchemaLocate = "BD-03-006-0093b BDN File Format.xsd"
)

type bdnDoc struct {
	XMLName        xml.Name   `xml:"BDN"`
	Version        string     `xml:"Version,attr"`
	XSI            string     `xml:"xmlns:xsi,attr"`
	SchemaLocation string     `xml:"xsi:noNamespaceSchemaLocation,attr"`
	Description    bdnHeader  `xml:"Description"`
	Events         []bdnEvent `xml:"Events>Event"`
}

type bdnHeader struct {
	Name struct {
		Title   string `xml:"Title,attr"`
		Content string `xml:"Content,attr"`
	} `xml:"Name"`
	Language struct {
		Code string `xml:"Code,attr"`
	} `xml:"Language"`
	Format struct {
		VideoFormat string `xml:"VideoFormat,attr"`
		FrameRate   string `xml:"FrameRate,attr"`
		DropFrame   string `xml:"DropFrame,attr"`
	} `xml:"Format"`
	Events struct {
		LastEventOutTC string `xml:"LastEventOutTC,attr"`
		FirstEventInTC string `xml:"FirstEventInTC,attr"`
		ContentInTC    string `xml:"ContentInTC,attr"`
		ContentOutTC   string `xml:"ContentOutTC,attr"`
		NumberofEvents int    `xml:"NumberofEvents,attr"`
		Type           string `xml:"Type,attr"`
	} `xml:"Events"`
}

type bdnEvent struct {
	Forced   string       `xml:"Forced,attr"`
	InTC     string       `xml:"InTC,attr"`
	OutTC    string       `xml:"OutTC,attr"`
	Graphics []bdnGraphic `xml:"Graphic"`
}

type bdnGraphic struct {
	Width  int    `xml:"Width,attr"`
	Height int    `xml:"Height,attr"`
	X      int    `xml:"X,attr"`
	Y      int    `xml:"Y,attr"`
	File   string `xml:",chardata"`
}

// XMLFormatter renders a Description as a BDN 0.93 document.
type XMLFormatter struct{}

// NewXMLFormatter creates a new XMLFormatter.
func NewXMLFormatter() *XMLFormatter {
	return &XMLFormatter{}
}

// Format implements Formatter.
func (f *XMLFormatter) Format(d *Description) ([]byte, error) {
	doc := bdnDoc{
		Version:        bdnVersion,
		XSI:            bdnSchemaNS,
		SchemaLocation: bdnSchemaLocate,
		Events:         make([]bdnEvent, 0, len(d.Events)),
	}
	h := &doc.Description
	h.Name.Title = d.TrackName
	h.Language.Code = d.Language
	h.Format.VideoFormat = d.VideoFormat
	h.Format.FrameRate = d.FrameRate
	h.Format.DropFrame = "False"
	h.Events.LastEventOutTC = d.LastOutTC
	h.Events.FirstEventInTC = d.FirstInTC
	h.Events.ContentInTC = d.ContentInTC
	h.Events.ContentOutTC = d.ContentOutTC
	h.Events.NumberofEvents = len(d.Events)
	h.Events.Type = "Graphic"

	for _, ev := range d.Events {
		e := bdnEvent{
			Forced:   boolAttr(ev.Forced),
			InTC:     ev.InTC,
			OutTC:    ev.OutTC,
			Graphics: make([]bdnGraphic, len(ev.Graphics)),
		}
		for i, g := range ev.Graphics {
			e.Graphics[i] = bdnGraphic{Width: g.Width, Height: g.Height, X: g.X, Y: g.Y, File: g.File}
		}
		doc.Events = append(doc.Events, e)
	}

	out, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal bdn: %w", err)
	}
	buf := make([]byte, 0, len(xml.Header)+len(out)+1)
	buf = append(buf, xml.Header...)
	buf = append(buf, out...)
	buf = append(buf, '\n')
	return buf, nil
}

func boolAttr(v bool) string {
	if v {
		return "True"
	}
	return "False"
}
