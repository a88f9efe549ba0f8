package repository

import (
	"example.com/rfidscan/internal/models"
	"example.com/rfidscan/internal/scanlog"
	"example.com/rfidscan/internal/stats"
)

// ToModel converts a log snapshot into its table rows
func ToModel(snap scanlog.Snapshot) models.Scanner {
	events := make([]models.ScanEvent, 0, len(snap.Events))
	for i, e := range snap.Events {
		events = append(events, models.ScanEvent{
			Account:  string(snap.Account),
			Seq:      i,
			ScanTime: e.ScanTime,
			RecvTime: e.RecvTime,
			DeviceID: e.DeviceID,
			TagID:    []byte(e.TagID.Clone()),
		})
	}

	return models.Scanner{
		Account:         string(snap.Account),
		LatencyMin:      snap.Stats.Min,
		LatencyMax:      snap.Stats.Max,
		LatencyMean:     snap.Stats.Mean,
		LatencyVariance: snap.Stats.Variance,
		NumTransactions: snap.NumTransactions,
		TimeFirstTx:     snap.TimeFirstTx,
		TimeLastTx:      snap.TimeLastTx,
		Generation:      snap.Generation,
		ScanEvents:      events,
	}
}

// ToSnapshot converts table rows back into a log snapshot. Events must be
// ordered by Seq.
func ToSnapshot(m models.Scanner) scanlog.Snapshot {
	events := make([]scanlog.ScanEvent, 0, len(m.ScanEvents))
	for _, e := range m.ScanEvents {
		events = append(events, scanlog.ScanEvent{
			ScanTime: e.ScanTime,
			RecvTime: e.RecvTime,
			DeviceID: e.DeviceID,
			TagID:    scanlog.TagID(e.TagID).Clone(),
		})
	}

	return scanlog.Snapshot{
		Account: scanlog.Account(m.Account),
		Stats: stats.Stats{
			Min:      m.LatencyMin,
			Max:      m.LatencyMax,
			Mean:     m.LatencyMean,
			Variance: m.LatencyVariance,
		},
		Events:          events,
		NumTransactions: m.NumTransactions,
		TimeFirstTx:     m.TimeFirstTx,
		TimeLastTx:      m.TimeLastTx,
		Generation:      m.Generation,
	}
}
