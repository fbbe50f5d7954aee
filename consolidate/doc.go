/*
Package consolidate turns raw calendar events from any number of feeds
into one deduplicated, windowed, ordered event list.

# Basic Usage

	resolver, err := timezone.New("UTC", nil)
	if err != nil {
		log.Fatal(err)
	}
	cons := consolidate.New(consolidate.DefaultConfig, resolver, nil)
	defer cons.Shutdown()

	res := cons.Consolidate(ctx, "refresh", sources, windowStart, windowEnd)
	if res.Failed {
		log.Fatalf("stage %s: %v", res.FailedStage, res.Err)
	}
	for _, ev := range res.Events {
		fmt.Println(ev.Start, ev.Subject)
	}

# Processing Model

Consolidation runs in three phases:

 1. Recurring masters are expanded into concrete occurrence instances.
    Expansions run concurrently, bounded per scheduling context by
    Config.WorkerConcurrency, and each individual walk is bounded by
    the occurrence cap, horizon and time budget in Config.Expansion.
 2. The instances are merged with the raw events. Modified occurrences
    carrying a RECURRENCE-ID replace the matching expanded instances,
    and masters whose expansion failed are kept as plain events so a
    broken rule degrades to "shown once" rather than "not shown".
 3. The merged set is deduplicated, filtered to the half-open window
    [windowStart, windowEnd) and stably sorted by start time.

# Per-Rule Outcomes

Result.Reports records one entry per recurring master: the expansion
Report on success (complete or partial), or the error when the rule
could not be expanded at all. Callers surfacing feed health, such as
the occurd status endpoint, can render the map with StatusStrings.

# Scheduling Contexts

The schedContext argument names an independent concurrency domain. Two
callers using different context keys never throttle each other; calls
sharing a key share that key's WorkerConcurrency slots. A host with one
refresh scheduler and one on-demand request pool would use two fixed
keys.
*/
package consolidate
