/*
Package storagemodels defines the data structures shared by the store backends
and the workflow.

Key Types:

Family:
The household record. It is partitioned by LastName and identified by
(ID, LastName):

	family := storagemodels.Family{
	    ID:       "Andersen.1",
	    LastName: "Andersen",
	    Address:  storagemodels.Address{State: "WA", County: "King", City: "Seattle"},
	}

QueryDefinition:
An equality filter over one attribute, drained page by page:

	q := storagemodels.NewEqualityQuery("LastName", "Andersen").WithPageSize(25)
	q.Text() // SELECT * FROM c WHERE c.LastName = 'Andersen'

Diagnostics:
Metadata returned with every store call (latency, consumed capacity, request
id). It is attached to telemetry and otherwise unused.
*/
package storagemodels
