package bus

// Well-known queue names for the direct-routed task queues. Routing key
// equals the queue name for these (default-exchange publish).
const (
	DownloadQueue    = "subtitle.download"
	TranslationQueue = "subtitle.translation"
)

// ConsumerBindings are the wildcard topic patterns the shared status
// projector binds against the exchange, covering every event type.
var ConsumerBindings = []string{"subtitle.#", "job.#", "media.#"}

// ManagerBindings are the patterns the manager binds to receive new
// subtitle requests.
var ManagerBindings = []string{"subtitle.requested"}
