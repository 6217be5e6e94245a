// Package cache implements the bounded in-memory result store shared by all
// search requests. Entries are evicted in strict FIFO order: the key inserted
// earliest is removed first, and reads never promote an entry. The store owns
// its entries and hands out copies, so resolver layers can return payloads
// without risking mutation of shared state. Capacity is fixed at startup;
// there is no TTL and nothing survives a restart.
package cache
