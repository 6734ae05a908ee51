// Package sim grows a synthetic citation network one generation at a time.
//
// Nodes (patents) are created in strictly increasing id order in blocks of
// GenLen nodes called generations. Generation 0 cites nothing. Every later
// node draws a number of parents from a configured distribution and picks
// them, without duplicates, from the nodes of strictly earlier generations.
// Which earlier nodes are likely to be picked is decided by a weight policy:
//
//   - uniform: every existing node has equal weight
//   - preferential: weight(i) = 1 + cites(i)^CitesExp
//   - aging: weight(i) = age(generation(i))
//   - preferential+aging: the product of the two (the default)
//
// where age(g) = (distance of g from the newest generation, in nodes)^(-AgeExp)
// is maintained by an [AgingSchedule] that gains one coefficient each time a
// generation closes.
//
// # Generation barrier
//
// Weights are recomputed only when a generation closes. Citation counters
// are incremented as soon as a node picks its parents, but the weights used
// for the rest of that generation stay frozen at the values computed from the
// previous closure. The generation boundary is therefore a hard barrier:
// the next generation's weights depend on every count of the previous one.
//
// # Distinct-generation cap
//
// A node never asks for more distinct parents than there are earlier
// generations. In generation g the parent set stops growing once it holds
// g parents, even if the drawn parent count was larger. This shapes the
// early network and is kept exactly.
//
// # Usage
//
//	cfg := sim.DefaultConfig()
//	cfg.NumRecords = 10000
//	s, err := sim.New(cfg, sim.WithLogger(logger))
//	if err != nil {
//	    return err
//	}
//	res, err := s.Run(ctx)
//	// res.Parentage[child] lists the parents of child
package sim
