// Package email sends transactional mail.
//
// EmailSender is the transport seam. Two transports are provided: Postmark
// (github.com/mrz1836/postmark) for deployed environments and DevSender, which
// writes messages to disk. QueuedSender puts messages on a pkg/queue queue so
// request handlers only pay for an enqueue; a worker running DeliveryHandler
// hands them to the transport:
//
//	transport, err := email.NewSender(cfg)
//	storage := queue.NewMemoryStorage()
//	enq, _ := queue.NewEnqueuer(storage)
//	worker, _ := queue.NewWorker(storage, queue.WithQueues(email.QueueName))
//	_ = worker.RegisterHandler(email.DeliveryHandler(transport))
//	sender := email.NewQueuedSender(enq)
//
// Message bodies are templ components rendered with templates.Render.
package email
