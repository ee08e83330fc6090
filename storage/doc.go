/*
Package storage provides the record store of a ceres node: a keyed mapping
from record key to the latest applied record payload. Two adapters exist,
an in-memory store for tests and single-process setups and a PostgreSQL
backed store for durable deployments. Which one is used is selected in the
node's config file. The delivery engine only relies on the Store interface
and treats the adapter as an external collaborator.
*/
package storage
