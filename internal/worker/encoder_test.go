package worker

import (
	"bufio"
	"bytes"
	"testing"

	"events-report/internal/config"

	json "github.com/goccy/go-json"
	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeJSON(t *testing.T) {
	p, err := NewEncoder(config.FormatJSON).Encode(sampleReport("r-1"))
	require.NoError(t, err)

	assert.Equal(t, "r-1", p.ReportID)
	assert.Equal(t, reportTime.Unix(), p.CreatedAt)
	assert.Equal(t, 3, p.NumRecords())
	assert.Equal(t, config.FormatJSON, p.Format)

	var doc struct {
		ID      string `json:"id"`
		Clients []struct {
			Session struct {
				SessionID uint64 `json:"session_id"`
			} `json:"client_session"`
		} `json:"client_event_list"`
		Dhcp []struct {
			Transaction struct {
				XID uint32 `json:"x_id"`
			} `json:"dhcp_transaction"`
		} `json:"dhcp_event_list"`
	}
	require.NoError(t, json.Unmarshal(p.Body, &doc))
	assert.Equal(t, "r-1", doc.ID)
	require.Len(t, doc.Clients, 2)
	assert.Equal(t, uint64(42), doc.Clients[0].Session.SessionID)
	require.Len(t, doc.Dhcp, 1)
	assert.Equal(t, uint32(0xbeef), doc.Dhcp[0].Transaction.XID)
}

func TestEncodeJSONLGZ(t *testing.T) {
	p, err := NewEncoder(config.FormatJSONLGZ).Encode(sampleReport("r-2"))
	require.NoError(t, err)

	gz, err := gzip.NewReader(bytes.NewReader(p.Body))
	require.NoError(t, err)
	defer gz.Close()

	var lines [][]byte
	sc := bufio.NewScanner(gz)
	for sc.Scan() {
		lines = append(lines, append([]byte(nil), sc.Bytes()...))
	}
	require.NoError(t, sc.Err())
	require.Len(t, lines, 1+2+1)

	var hdr reportHeader
	require.NoError(t, json.Unmarshal(lines[0], &hdr))
	assert.Equal(t, "r-2", hdr.ID)
	assert.Equal(t, 2, hdr.NumClients)
	assert.Equal(t, 1, hdr.NumDhcp)
	assert.Equal(t, "wlan1", hdr.Radio.IfName)

	var first recordLine
	require.NoError(t, json.Unmarshal(lines[1], &first))
	require.NotNil(t, first.Client)
	assert.Nil(t, first.Dhcp)
	assert.Equal(t, "office", first.Client.Assoc.SSID)

	var last recordLine
	require.NoError(t, json.Unmarshal(lines[3], &last))
	require.NotNil(t, last.Dhcp)
	assert.Equal(t, "10.0.0.7", last.Dhcp.Ack.ClientIP)
}

func TestEncodeBodyIsIndependent(t *testing.T) {
	enc := NewEncoder(config.FormatJSON)

	a, err := enc.Encode(sampleReport("a"))
	require.NoError(t, err)
	snapshot := append([]byte(nil), a.Body...)

	_, err = enc.Encode(sampleReport("b"))
	require.NoError(t, err)

	assert.Equal(t, snapshot, a.Body)
}

func TestEncodeUnknownFormat(t *testing.T) {
	_, err := NewEncoder("xml").Encode(sampleReport("r-3"))
	assert.Error(t, err)
}
