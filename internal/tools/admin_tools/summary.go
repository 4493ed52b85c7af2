package admin_tools

import "github.com/teemow/bizgateway/internal/datastore"

type tenancySummary struct {
	Active  int `json:"active"`
	Pending int `json:"pending"`
}

func summarizeTenancies(rows []datastore.Row) any {
	return tenancySummary{
		Active:  datastore.CountWhere(rows, "status", "active"),
		Pending: datastore.CountWhere(rows, "status", "pending"),
	}
}

type batchSummary struct {
	Draft       int     `json:"draft"`
	Submitted   int     `json:"submitted"`
	Paid        int     `json:"paid"`
	TotalAmount float64 `json:"totalAmount"`
}

func summarizeBatches(rows []datastore.Row) any {
	return batchSummary{
		Draft:       datastore.CountWhere(rows, "status", "draft"),
		Submitted:   datastore.CountWhere(rows, "status", "submitted"),
		Paid:        datastore.CountWhere(rows, "status", "paid"),
		TotalAmount: datastore.Sum(rows, "total_amount"),
	}
}

type paymentSummary struct {
	Pending int `json:"pending"`
	Paid    int `json:"paid"`
	Overdue int `json:"overdue"`
}

func summarizePayments(rows []datastore.Row) any {
	return paymentSummary{
		Pending: datastore.CountWhere(rows, "status", "pending"),
		Paid:    datastore.CountWhere(rows, "status", "paid"),
		Overdue: datastore.CountWhere(rows, "status", "overdue"),
	}
}

type maintenanceSummary struct {
	Submitted  int `json:"submitted"`
	InProgress int `json:"in_progress"`
	Completed  int `json:"completed"`
	Emergency  int `json:"emergency"`
}

func summarizeMaintenance(rows []datastore.Row) any {
	return maintenanceSummary{
		Submitted:  datastore.CountWhere(rows, "status", "submitted"),
		InProgress: datastore.CountWhere(rows, "status", "in_progress"),
		Completed:  datastore.CountWhere(rows, "status", "completed"),
		Emergency:  datastore.CountWhere(rows, "priority", "emergency"),
	}
}
