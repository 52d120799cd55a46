package worker

import (
	"time"

	"events-report/internal/model"
)

var reportTime = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func sampleReport(id string) *model.Report {
	return &model.Report{
		ID:          id,
		Ts:          reportTime.UnixMilli(),
		ReportStart: reportTime.Add(-time.Minute).UnixMilli(),
		Radio:       &model.RadioConfig{Type: "5G", IfName: "wlan1"},
		Clients: []*model.ClientEventRecord{
			{Session: model.ClientSession{
				SessionID: 42,
				Auth:      &model.ClientEvent{Ts: 1, MAC: "aa:bb:cc:dd:ee:01"},
				Assoc:     &model.ClientEvent{Ts: 2, SSID: "office"},
			}},
			{Session: model.ClientSession{
				SessionID:  43,
				Disconnect: &model.ClientEvent{Ts: 3, Reason: 8},
			}},
		},
		Dhcp: []*model.DhcpEventRecord{
			{Transaction: model.DhcpTransaction{
				XID: 0xbeef,
				Ack: &model.DhcpEvent{Ts: 4, ClientIP: "10.0.0.7"},
			}},
		},
	}
}

func samplePayload(id string, body string) *model.Payload {
	return &model.Payload{
		ReportID:   id,
		CreatedAt:  reportTime.Unix(),
		NumClients: 2,
		NumDhcp:    1,
		Format:     "json",
		Body:       []byte(body),
	}
}
