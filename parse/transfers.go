package parse

import (
	"fmt"

	"github.com/gocarina/gocsv"

	"github.com/transitdb/gtfsync/model"
)

type TransferCSV struct {
	FromStopID      string `csv:"from_stop_id"`
	ToStopID        string `csv:"to_stop_id"`
	TransferType    int8   `csv:"transfer_type"`
	MinTransferTime int    `csv:"min_transfer_time"`
}

func ParseTransfers(data []byte) ([]*model.Transfer, error) {
	if err := requireColumns(data, "transfers.txt", "from_stop_id", "to_stop_id"); err != nil {
		return nil, err
	}

	transferCsv := []*TransferCSV{}
	if err := gocsv.UnmarshalBytes(data, &transferCsv); err != nil {
		return nil, fmt.Errorf("unmarshaling transfers csv: %w", err)
	}

	transfers := make([]*model.Transfer, 0, len(transferCsv))
	for _, t := range transferCsv {
		if t.FromStopID == "" || t.ToStopID == "" {
			return nil, fmt.Errorf("transfer with empty from_stop_id or to_stop_id")
		}

		transfers = append(transfers, &model.Transfer{
			FromStopID:      t.FromStopID,
			ToStopID:        t.ToStopID,
			TransferType:    t.TransferType,
			MinTransferTime: t.MinTransferTime,
		})
	}

	return transfers, nil
}
